package hostfunc

import (
	"io"
	"strings"
)

func opPrint(s *State, args Args) (any, error) {
	text, err := args.String(0)
	if err != nil {
		return nil, err
	}
	isErr, err := args.Bool(1)
	if err != nil {
		return nil, err
	}

	var w io.Writer = s.Stdout
	if isErr {
		w = s.Stderr
	}
	_, err = io.WriteString(w, text)
	return nil, err
}

func opEncode(s *State, args Args) (any, error) {
	text, err := args.String(0)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// opDecode decodes UTF-8, replacing invalid sequences with U+FFFD.
func opDecode(s *State, args Args) (any, error) {
	b, err := args.Bytes(0)
	if err != nil {
		return nil, err
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}
