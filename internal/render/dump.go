package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Dump writes every message of st in ascending id order.
func Dump(w io.Writer, st *store.Store, format string) error {
	msgs := st.Sorted()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(nonNil(msgs))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nonNil(msgs)); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		for _, m := range msgs {
			if _, err := fmt.Fprintln(w, textLine(m)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown dump format: %s", format)
	}
}

// an empty store still dumps as a list
func nonNil(msgs []*store.Message) []*store.Message {
	if msgs == nil {
		return []*store.Message{}
	}
	return msgs
}

// textLine is the tab separated one-line form: id, time, sender, tags, text.
func textLine(m *store.Message) string {
	text := strings.ReplaceAll(m.Text, "\n", " ")
	return strings.Join([]string{
		fmt.Sprint(m.ID),
		FormatTime(m.Timestamp),
		DisplayName(m),
		messageTags(m),
		text,
	}, "\t")
}
