package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func printRawJSON(w io.Writer, payload json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		// not JSON after all: print as-is
		_, werr := w.Write(payload)
		if werr != nil {
			return werr
		}
		_, werr = fmt.Fprintln(w)
		return werr
	}

	_, err := fmt.Fprintln(w, buf.String())
	return err
}

func printJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
