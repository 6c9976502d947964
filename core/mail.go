package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/masomo/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates       tmplCache
	frontendBaseURL string
	tmplMu          sync.RWMutex
)

type (
	tmplCacheEntry map[string]executor       // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// executor is satisfied by both text and html templates.
type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// execute renders the template of the message for ext; "" when the message has none.
func (m *EmailMessage) execute(ext string) (string, error) {
	tmplMu.RLock()
	tmpl, ok := templates[m.TemplateName][ext]
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}
	tmplMu.RUnlock()
	if !ok {
		return "", nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s%s", m.TemplateName, ext)
	}
	return buff.String(), nil
}

// Render fills TextContent and HTMLContent. BodyStr takes precedence over the text template.
func (m *EmailMessage) Render() (err error) {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	if m.BodyStr == "" {
		if m.TextContent, err = m.execute(".txt"); err != nil {
			return err
		}
	}
	m.HTMLContent, err = m.execute(".gohtml")
	return err
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	_ = encoder.Close()

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates. Files starting with "_" are layouts.
func ParseEmailTemplates(conf *Config, logger Logger) {
	cache := make(tmplCache)
	strict := conf.Debug || conf.TestMode

	fps, err := fs.Glob(appfs.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("listing email templates: %v", err), err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}

		tmpl, err := parseTemplate(ext, path.Join(emailTemplatesDir, "_base"+ext), fp, strict)
		if err != nil {
			logger.Error(fmt.Sprintf("parsing %s: %v", fname, err), err)
			continue
		}
		entry[ext] = tmpl
	}

	tmplMu.Lock()
	templates = cache
	frontendBaseURL = conf.FrontendBaseURL
	tmplMu.Unlock()
}

// parseTemplate parses fp on top of its base layout. Strict templates fail on missing keys.
func parseTemplate(ext, base, fp string, strict bool) (executor, error) {
	opt := "missingkey=default"
	if strict {
		opt = "missingkey=error"
	}
	if ext == ".txt" {
		tmpl, err := texttmpl.ParseFS(appfs.FS, base, fp)
		if err != nil {
			return nil, err
		}
		return tmpl.Option(opt), nil
	}
	tmpl, err := htmltmpl.ParseFS(appfs.FS, base, fp)
	if err != nil {
		return nil, err
	}
	return tmpl.Option(opt), nil
}
