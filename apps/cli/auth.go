package main

import (
	"syscall"

	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core/session"
)

func (cli *commandLine) login(email, password string) error {
	prof, err := cli.auth.Login(cli.ctx, session.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	cli.printf("Welcome %s!\n", prof.DisplayName())
	if prof.IsAdmin() {
		cli.println("You are logged in as an administrator.")
	}
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.dropExpired(); errors.Is(err, errExpired) {
		cli.println("Your session had already expired.")
		return nil
	} else if err != nil {
		return err
	}
	if !cli.session.IsAuthenticated() {
		cli.println("You are not logged in.")
		return nil
	}
	if err := cli.auth.Logout(cli.ctx); err != nil {
		return err
	}
	cli.println("Logged out.")
	return nil
}

func (cli *commandLine) whoami() error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	prof, err := cli.auth.Me(cli.ctx)
	if err != nil {
		return err
	}
	cli.printf("%s <%s> (%s)\n", prof.DisplayName(), prof.Email, prof.Role)
	return nil
}

func stdinFd() int {
	return int(syscall.Stdin)
}
