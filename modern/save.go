package modern

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/CK6170/calunc-go/models"
)

// SavedReport is the layout of a saved calculation, on disk and in
// downloads.
type SavedReport struct {
	Kind   Kind            `json:"kind"`
	Input  json.RawMessage `json:"input_data"`
	Result json.RawMessage `json:"result_data"`
}

// EncodeSaved indents a saved calculation from already encoded parts.
func EncodeSaved(kind Kind, input, result json.RawMessage) ([]byte, error) {
	if len(input) == 0 {
		input = json.RawMessage("null")
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return json.MarshalIndent(SavedReport{Kind: kind, Input: input, Result: result}, "", "  ")
}

// SaveReport writes the report next to its input. It does not print
// anything; callers surface errors themselves.
func SaveReport(path string, kind Kind, input json.RawMessage, r *models.Report) error {
	if r == nil {
		return fmt.Errorf("report nil")
	}
	result, err := json.Marshal(r)
	if err != nil {
		return err
	}
	data, err := EncodeSaved(kind, input, result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	verFile := strings.TrimSuffix(path, ".json") + ".version"
	_ = os.WriteFile(verFile, []byte("calunc "+Version+"\n"), 0644)
	return nil
}
