package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// show prints an API response: JSON bodies are re-indented with sorted keys,
// anything else is printed as is.
func show(w io.Writer, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		if _, err := w.Write(body); err != nil {
			return err
		}
		if !bytes.HasSuffix(body, []byte("\n")) {
			_, err = fmt.Fprintln(w)
			return err
		}
		return nil
	}
	return showValue(w, v)
}

// showValue prints v as JSON with sorted keys and a four space indent.
func showValue(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal output: %w", err)
	}

	// round trip through a generic value so struct fields are sorted too
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(generic)
}
