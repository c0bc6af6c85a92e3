package hostapi

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/gantrydata/gantry/internal/core"
)

// maxDecompressedSize caps decompression output to keep a hostile or broken
// payload from exhausting memory (128 MB).
const maxDecompressedSize = 128 * 1024 * 1024

// compressJS exposes the guest compress module. Payloads are base64-framed
// both ways because the host function boundary carries strings.
const compressJS = `
__registerBuiltin('compress', function() {
	return {
		gzip: function(b64) { return __compress('gzip', b64); },
		gunzip: function(b64) { return __decompress('gzip', b64); },
		deflate: function(b64) { return __compress('deflate', b64); },
		inflate: function(b64) { return __decompress('deflate', b64); },
		brotli: function(b64) { return __compress('br', b64); },
		unbrotli: function(b64) { return __decompress('br', b64); }
	};
});
`

func compressData(format string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch format {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("creating deflate writer: %w", err)
		}
		w = fw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("unsupported compression format %q", format)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing compression: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressData(format string, data []byte) ([]byte, error) {
	var r io.Reader
	switch format {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gr.Close()
		r = gr
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		r = fr
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression format %q", format)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	if len(out) > maxDecompressedSize {
		return nil, fmt.Errorf("decompressed data exceeds %d bytes", maxDecompressedSize)
	}
	return out, nil
}

// setupCompress registers the gzip/deflate/brotli codecs backing
// require('compress').
func setupCompress(rt core.ScriptRuntime, _ *Options) error {
	if err := rt.RegisterFunc("__compress", func(format, b64 string) (string, error) {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return "", fmt.Errorf("decoding input: %w", err)
		}
		out, err := compressData(format, data)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(out), nil
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__decompress", func(format, b64 string) (string, error) {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return "", fmt.Errorf("decoding input: %w", err)
		}
		out, err := decompressData(format, data)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(out), nil
	}); err != nil {
		return err
	}

	return rt.Eval(compressJS)
}
