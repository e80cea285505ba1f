package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var assetExts = map[string]bool{
	".webp": true,
	".png":  true,
	".gif":  true,
	".jpg":  true,
	".jpeg": true,
	".hex":  true,
}

// loadAssetDir reads every image in dir in file name order. Files ending in
// .hex hold the image as hex text. A missing dir yields no assets.
func loadAssetDir(dir string) ([][]byte, []string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read assets %s: %w", dir, err)
	}

	var (
		out   [][]byte
		names []string
	)
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !assetExts[ext] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read asset: %w", err)
		}
		if ext == ".hex" {
			b, err = hex.DecodeString(string(bytes.Join(bytes.Fields(b), nil)))
			if err != nil {
				return nil, nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
		out = append(out, b)
		names = append(names, e.Name())
	}
	return out, names, nil
}
