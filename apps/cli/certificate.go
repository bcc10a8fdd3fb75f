package main

import (
	"bytes"
	"fmt"
	"net/mail"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/certificate"
)

// certificate renders the course certificate to out ("-" for stdout) and optionally emails it.
func (cli *commandLine) certificate(courseID core.ID, f certificate.Format, out string, email bool) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	c, err := cli.certs.ForCourse(cli.ctx, courseID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := certificate.Render(&buf, c, f); err != nil {
		return err
	}
	if out == "-" {
		if _, err := buf.WriteTo(cli.out); err != nil {
			return err
		}
	} else {
		if out == "" {
			out = c.Filename(f)
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "saving certificate")
		}
		cli.printf("Certificate %s saved to %s (%s).\n", c.CertificateNumber, out, humanize.Bytes(uint64(buf.Len())))
	}

	if email {
		prof := cli.session.Profile()
		if prof.Email == "" {
			return errors.New("your profile has no email address")
		}
		if err := cli.certs.Mail(c, mail.Address{Name: prof.FullName, Address: prof.Email}); err != nil {
			return err
		}
		cli.mailer.Wait()
		cli.printf("Certificate sent to %s.\n", prof.Email)
	}
	return nil
}

func (cli *commandLine) listCertificates() error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	certs, err := cli.certs.Mine(cli.ctx)
	if err != nil {
		return err
	}
	if len(certs) == 0 {
		cli.println("No certificates yet: complete a course to earn one.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tCOURSE\tTITLE\tISSUED")
	for _, c := range certs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.CertificateNumber, c.CourseID, core.Truncate(c.CourseTitle, 40), humanize.Time(c.IssuedAt))
	}
	return tw.Flush()
}
