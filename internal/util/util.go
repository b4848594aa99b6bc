package util

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON pretty-prints v for the CLI output.
func WriteJSON(w io.Writer, v any) error {
	bytes, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("could not marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}
