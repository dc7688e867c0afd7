package app

import (
	"encoding/json"
	"fmt"
	"io"
)

// printJSON writes v to out as indented JSON
func printJSON(out io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(output))
	return err
}
