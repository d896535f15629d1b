package parse

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

const (
	bodyMarker       = `<div class="history">`
	classNewMessage  = "message default clearfix"
	classJoined      = "joined"
	classForwarded   = "forwarded body"
	classSenderName  = "from_name"
	classText        = "text"
	classMedia       = "media_wrap clearfix"
	classReplyTo     = "reply_to details"
	classDate        = "pull_right date details"
	messageIDPrefix  = "message"
	mentionOnclick   = "ShowMentionName"
	goToMessageToken = "go_to_message"
)

var (
	attrRe        = regexp.MustCompile(`([\w-]+)="([^"]*)"`)
	goToMessageRe = regexp.MustCompile(`#go_to_message(\d+)`)
	mentionRe     = regexp.MustCompile(`ShowMentionName\(\)">(.*?)</a>`)
	anchorRe      = regexp.MustCompile(`(?s)<a\b[^>]*>(.*?)</a>`)
	wrapClassRe   = regexp.MustCompile(`class="(\w+?)_wrap\b`)
	mediaClassRe  = regexp.MustCompile(`\bmedia_(\w+)`)
)

var dateLayouts = []string{
	"02.01.2006 15:04:05 UTC-07:00",
	"02.01.2006 15:04:05 UTC-0700",
	"02.01.2006 15:04:05",
}

// field the next plain lines belong to
type target int

const (
	targetNone target = iota
	targetSenderName
	targetText
	targetMedia
	targetReplyTo
)

// HTMLParser reads the messages*.html pages of a Telegram desktop export.
type HTMLParser struct {
	Converter TextConverter
	Logger    zerolog.Logger
}

func NewHTMLParser(log zerolog.Logger) *HTMLParser {
	return &HTMLParser{Converter: HTMLText{}, Logger: log}
}

// ParseFiles parses every page and unions the messages into one result.
func (p *HTMLParser) ParseFiles(files []string) (*Result, error) {
	result := newResult()
	for _, f := range files {
		if err := p.parseFile(f, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *HTMLParser) parseFile(filePath string, result *Result) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.parsePage(f, filePath, result); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	return nil
}

type draft struct {
	msg   store.Message
	hasID bool
	line  int
	text  strings.Builder
	reply strings.Builder
	media strings.Builder
}

type pageState struct {
	p      *HTMLParser
	result *Result
	file   string

	cur       *draft
	target    target
	suspended bool   // inside forwarded content until the next message
	lastTS    *int64 // timestamp of the previous stored message
}

func (p *HTMLParser) parsePage(r io.Reader, file string, result *Result) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// eat everything before the message history
	start := 0
	for i, l := range lines {
		if strings.Contains(l, bodyMarker) {
			start = i
			break
		}
	}

	st := &pageState{p: p, result: result, file: file}
	for i := start; i < len(lines); i++ {
		st.feed(lines[i], i+1)
	}
	st.finish()
	return nil
}

func (st *pageState) feed(line string, lineNum int) {
	openAt := strings.Index(line, "<div")
	closeAt := strings.LastIndex(line, "</div")

	switch {
	case openAt >= 0:
		st.open(line, lineNum)
		if closeAt > openAt {
			// <div class="text">inline</div>
			if st.target != targetNone {
				st.plain(inlineContent(line))
			}
			st.target = targetNone
		}
	case closeAt >= 0:
		st.target = targetNone
	default:
		st.plain(line)
	}
}

func (st *pageState) open(line string, lineNum int) {
	attrs := parseAttrs(line)
	class := attrs["class"]

	if strings.HasPrefix(class, classNewMessage) {
		var name *string
		if st.cur != nil && st.cur.msg.SenderName != nil && strings.HasSuffix(class, classJoined) {
			name = store.Ptr(*st.cur.msg.SenderName)
		}
		st.finish()

		d := &draft{line: lineNum}
		d.msg.SenderName = name
		if id, err := strconv.ParseInt(strings.TrimPrefix(attrs["id"], messageIDPrefix), 10, 64); err == nil {
			d.msg.ID = id
			d.hasID = true
		}
		st.cur = d
		st.target = targetNone
		st.suspended = false
		return
	}

	st.target = targetNone
	if st.suspended || st.cur == nil {
		return
	}

	switch class {
	case classForwarded:
		st.suspended = true
	case classSenderName:
		st.target = targetSenderName
	case classText:
		st.target = targetText
	case classMedia:
		st.target = targetMedia
	case classReplyTo:
		st.target = targetReplyTo
	case classDate:
		ts, err := parseTitleTime(attrs["title"])
		if err != nil {
			st.p.Logger.Debug().Err(err).Int64("id", st.cur.msg.ID).Msg("timestamp left unset")
			return
		}
		st.cur.msg.Timestamp = &ts
	}
}

func (st *pageState) plain(line string) {
	if st.suspended || st.cur == nil {
		return
	}
	switch st.target {
	case targetNone:
	case targetSenderName:
		name := line
		if i := strings.IndexByte(name, '<'); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(html.UnescapeString(name))
		if name == "" {
			return
		}
		st.cur.msg.SenderName = &name
		st.target = targetNone
	case targetText:
		st.cur.text.WriteString(line + "\n")
	case targetMedia:
		st.cur.media.WriteString(line + "\n")
	case targetReplyTo:
		st.cur.reply.WriteString(line + "\n")
	}
}

// finish post-processes the current draft and stores it when it has an id.
func (st *pageState) finish() {
	d := st.cur
	st.cur = nil
	if d == nil || !d.hasID {
		return
	}
	m := &d.msg

	for _, match := range goToMessageRe.FindAllStringSubmatch(d.reply.String(), -1) {
		if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			m.ReplyTo = append(m.ReplyTo, id)
		}
	}

	text := strings.TrimSpace(d.text.String())
	if strings.Contains(text, goToMessageToken) {
		for _, match := range goToMessageRe.FindAllStringSubmatch(text, -1) {
			m.MessageLinks = append(m.MessageLinks, match[1])
		}
	}
	if strings.Contains(text, mentionOnclick) {
		for _, match := range mentionRe.FindAllStringSubmatch(text, -1) {
			m.Mentions = append(m.Mentions, html.UnescapeString(match[1]))
		}
	}
	text = anchorRe.ReplaceAllString(text, "$1")
	if plain, err := st.p.Converter.PlainText(text); err != nil {
		st.p.Logger.Warn().Err(fmt.Errorf("%w: %v", ErrUnparseableMarkup, err)).
			Int64("id", m.ID).Msg("text kept as markup")
	} else {
		text = plain
	}
	m.Text = text
	m.Media = mediaTag(d.media.String())

	if m.Timestamp == nil && st.lastTS != nil {
		m.Timestamp = store.Ptr(*st.lastTS)
	}
	if m.Timestamp != nil {
		st.lastTS = m.Timestamp
	}

	st.result.add(m, Origin{File: st.file, Line: d.line})
}

func parseAttrs(line string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(line, -1) {
		// the opening div comes first, nested inline tags must not shadow it
		if _, seen := attrs[m[1]]; !seen {
			attrs[m[1]] = m[2]
		}
	}
	return attrs
}

// inlineContent returns what sits between the opening tag and </div on one line.
func inlineContent(line string) string {
	i := strings.Index(line, "<div")
	j := strings.Index(line[i:], ">")
	k := strings.LastIndex(line, "</div")
	if j < 0 || i+j+1 > k {
		return ""
	}
	return line[i+j+1 : k]
}

func parseTitleTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

var mediaAliases = map[string]string{
	"animated": "animation",
	"video":    "video_file",
}

// mediaTag maps the raw markup inside a media block to the vocabulary JSON
// exports use in media_type.
func mediaTag(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	tag := ""
	if m := wrapClassRe.FindStringSubmatch(raw); m != nil {
		tag = m[1]
	} else if m := mediaClassRe.FindStringSubmatch(raw); m != nil {
		tag = m[1]
	}
	if alias, ok := mediaAliases[tag]; ok {
		tag = alias
	}
	if tag == "" {
		return "media"
	}
	return tag
}
