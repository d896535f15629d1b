package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/chatmerge/internal/index"
)

// OpenMessage opens the export file a cached message was read from, at the
// line where the message starts.
func OpenMessage(db *index.DB, id int64) error {
	row, err := db.GetMessage(id)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if row == nil {
		return fmt.Errorf("message not found: %d", id)
	}

	filePath := row.Origin.File
	if filePath == "" {
		return fmt.Errorf("message %d has no recorded origin", id)
	}
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	lineNum := max(row.Origin.Line, 1)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	cmd := editorCommand(editor, filePath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return exec.Command(editor, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(editor, "code"):
		return exec.Command(editor, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(editor, "less"):
		return exec.Command(editor, "+"+strconv.Itoa(lineNum), filePath)
	default:
		return exec.Command(editor, filePath)
	}
}
