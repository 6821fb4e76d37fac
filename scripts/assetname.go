package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bitmapadapter/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/assetname.go <file> [extension]")
		fmt.Println("Example: go run scripts/assetname.go backdrop.png")
		os.Exit(1)
	}

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if len(os.Args) > 2 {
		ext = strings.TrimPrefix(os.Args[2], ".")
	}
	if ext == "" {
		fmt.Fprintln(os.Stderr, "Error: no extension; pass one as the second argument")
		os.Exit(1)
	}

	artifact := pipeline.NewArtifact(data, pipeline.DetectFormat(data), strings.ToLower(ext))
	fmt.Println(artifact.Name)
	fmt.Printf("content type: %s\n", artifact.ContentType)
}
