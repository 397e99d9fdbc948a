package modern

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputFile is the on-disk form of a calculation: the calculator kind plus
// its raw input.
type InputFile struct {
	Kind  Kind            `json:"kind"`
	Input json.RawMessage `json:"input"`
}

// LoadInput reads an input file. A file without a "kind" wrapper is taken as
// a bare input for fallback.
func LoadInput(path string, fallback Kind) (*InputFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeInput(b, fallback)
}

func DecodeInput(b []byte, fallback Kind) (*InputFile, error) {
	var in InputFile
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	if in.Kind == "" || len(in.Input) == 0 {
		if fallback == "" {
			return nil, fmt.Errorf("missing kind in input JSON")
		}
		in = InputFile{Kind: fallback, Input: json.RawMessage(b)}
	}
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return nil, err
	}
	return &in, nil
}

func PersistInput(path string, in *InputFile) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReportPath derives the default report path from the input path. The
// result never equals inputPath.
func ReportPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_report.json"
}
