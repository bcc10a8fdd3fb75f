// Package certificate fetches course completion certificates and renders them
// as printable HTML or plain text.
package certificate

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"io"
	"net/mail"
	"strings"
	"sync"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
	appfs "github.com/kohkiet/swp-lms/fs"
)

type Format string

// Formats
const (
	FormatHTML Format = "html"
	FormatText Format = "text"
)

var (
	// errors
	ErrNotFound      = errors.New("certificate not found: the course is not completed yet")
	errMissingCourse = errors.New("course id is required")

	tmplOnce sync.Once
	htmlTmpl *htmltmpl.Template
	textTmpl *texttmpl.Template
	tmplErr  error
)

type Certificate struct {
	ID                core.ID   `json:"id"`
	CertificateNumber string    `json:"certificateNumber"`
	CourseID          core.ID   `json:"courseId"`
	CourseTitle       string    `json:"courseTitle"`
	UserName          string    `json:"userName"`
	Score             float64   `json:"score,omitempty"`
	IssuedAt          time.Time `json:"issuedAt"`
	VerifyURL         string    `json:"verifyUrl,omitempty"`
}

// Filename is the suggested file name of the rendered certificate.
func (c Certificate) Filename(f Format) string {
	ext := ".txt"
	if f == FormatHTML {
		ext = ".html"
	}
	num := c.CertificateNumber
	if num == "" {
		num = string(c.ID)
	}
	return "certificate-" + strings.ReplaceAll(num, "/", "-") + ext
}

// ParseFormat accepts "html" and "text" (or "txt"), case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch core.CleanString(s, true /* lower */) {
	case "", "html":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", errors.Errorf("unknown certificate format %q", s)
}

// Render writes the certificate to w in the given format.
func Render(w io.Writer, c Certificate, f Format) error {
	tmplOnce.Do(parseTemplates)
	if tmplErr != nil {
		return errors.Wrap(tmplErr, "parsing certificate templates")
	}
	switch f {
	case FormatHTML:
		return errors.Wrap(htmlTmpl.Execute(w, c), "rendering html certificate")
	case FormatText:
		return errors.Wrap(textTmpl.Execute(w, c), "rendering text certificate")
	}
	return errors.Errorf("unknown certificate format %q", f)
}

func parseTemplates() {
	htmlTmpl, tmplErr = htmltmpl.ParseFS(appfs.FS, "templates/certificate/certificate.gohtml")
	if tmplErr != nil {
		return
	}
	textTmpl, tmplErr = texttmpl.ParseFS(appfs.FS, "templates/certificate/certificate.txt")
}

type Service struct {
	api           *apiclient.Client
	mailer        core.EmailService
	from          mail.Address
	portalBaseURL string
	logger        core.Logger
}

// NewService returns the certificate service. mailer may be nil when certificates are never emailed.
func NewService(api *apiclient.Client, mailer core.EmailService, conf *core.Config, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	svc := &Service{api: api, mailer: mailer, logger: logger}
	if conf != nil {
		svc.from = conf.DefaultFromEmail()
		svc.portalBaseURL = conf.PortalBaseURL
	}
	return svc
}

// ForCourse returns the certificate earned for a course, or ErrNotFound.
func (svc *Service) ForCourse(ctx context.Context, courseID core.ID) (Certificate, error) {
	if courseID == "" {
		return Certificate{}, errMissingCourse
	}
	res := svc.api.Get(ctx, "/api/certificates/course/"+string(courseID), apiclient.Protected())
	var c Certificate
	if err := res.Into(&c, "getting certificate", apiclient.NotFound(ErrNotFound)); err != nil {
		return Certificate{}, err
	}
	if c.CourseID == "" {
		c.CourseID = courseID
	}
	return svc.withVerifyURL(c), nil
}

// Mine lists the current user's certificates.
func (svc *Service) Mine(ctx context.Context) ([]Certificate, error) {
	res := svc.api.Get(ctx, "/api/certificates/my", apiclient.Protected())
	var certs []Certificate
	if err := res.Into(&certs, "listing certificates", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	for i := range certs {
		certs[i] = svc.withVerifyURL(certs[i])
	}
	return certs, nil
}

// Mail emails the certificate to the recipients, with the HTML rendering attached.
func (svc *Service) Mail(c Certificate, to ...mail.Address) error {
	if svc.mailer == nil {
		return errors.New("no email service configured")
	}
	if len(to) == 0 {
		return errors.New("no recipient")
	}

	var buf bytes.Buffer
	if err := Render(&buf, c, FormatHTML); err != nil {
		return err
	}
	msg := &core.EmailMessage{
		To:            to,
		Subject:       fmt.Sprintf("Your certificate for %s", c.CourseTitle),
		TemplateName:  "certificate",
		PortalBaseURL: svc.portalBaseURL,
		TemplateData: map[string]interface{}{
			"UserName":          c.UserName,
			"CourseTitle":       c.CourseTitle,
			"CertificateNumber": c.CertificateNumber,
		},
	}
	if err := msg.Attach(&buf, c.Filename(FormatHTML), "text/html; charset=utf-8"); err != nil {
		return err
	}
	svc.mailer.SendMessages(msg)
	svc.logger.Info("certificate mailed", map[string]interface{}{"certificate": c.CertificateNumber, "recipients": len(to)})
	return nil
}

func (svc *Service) withVerifyURL(c Certificate) Certificate {
	if c.VerifyURL == "" && svc.portalBaseURL != "" && c.CertificateNumber != "" {
		c.VerifyURL = svc.portalBaseURL + "/certificates/verify/" + c.CertificateNumber
	}
	return c
}
