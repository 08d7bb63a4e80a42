// Package useradmin implements the terminal flow that bootstraps an
// administrator account.
package useradmin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/dmitrijs2005/accountsvc/internal/server/services"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// Registrar creates user records.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter reads answers from in and passwords from the terminal behind fd.
func NewPrompter(in io.Reader, out io.Writer, fd int) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// CreateAdmin asks for name, email and a confirmed password and registers an
// account holding both the user and admin roles.
func CreateAdmin(ctx context.Context, r Registrar, p *Prompter) (*models.User, error) {
	name, err := GetSimpleText(p.in, "Enter full name", p.out)
	if err != nil {
		return nil, err
	}

	email, err := GetSimpleText(p.in, "Enter email", p.out)
	if err != nil {
		return nil, err
	}

	password, err := GetPassword(p.fd, "Enter password", p.out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(p.fd, "Repeat password", p.out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return nil, ErrPasswordMismatch
	}

	u, err := r.Register(ctx, services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: string(password),
		Roles:    []models.Role{models.RoleUser, models.RoleAdmin},
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(p.out, "Admin %s created (id %s)\n", u.Email, u.ID)
	return u, nil
}

// Describe renders err for the terminal, listing every invalid field.
func Describe(err error) string {
	var ve *common.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var b bytes.Buffer
	b.WriteString("invalid input:")
	for _, f := range ve.Fields {
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
	}
	return b.String()
}
