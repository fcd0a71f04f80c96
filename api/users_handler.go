package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authorid/authorid/pkg/auth"
	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
)

// newUserForm is the registration body, accepted as JSON or form data.
type newUserForm struct {
	Email    string `json:"email" form:"email"`
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
	Passconf string `json:"passconf" form:"passconf"`
}

func (f *newUserForm) validate() fieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	f.Name = strings.TrimSpace(f.Name)

	errs := fieldErrors{}
	requireEmail(errs, f.Email)
	if f.Name == "" {
		errs.add("name", msgRequiredField)
	}
	if f.Password == "" {
		errs.add("password", msgRequiredField)
	}
	if f.Passconf == "" {
		errs.add("passconf", msgRequiredField)
	}
	if f.Password != "" && f.Passconf != "" && f.Password != f.Passconf {
		errs.add("passconf", msgPasswordsMismatch)
	}
	return errs
}

// loginForm is the login body, accepted as JSON or form data.
type loginForm struct {
	Email    string   `json:"email" form:"email"`
	Password string   `json:"password" form:"password"`
	Remember remember `json:"remember" form:"remember"`
}

// remember is the login "remember me" choice. It accepts JSON booleans and
// the checkbox values HTML forms send ("y", "on", "true", "1" and their
// negatives).
type remember bool

func (r *remember) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "y", "yes", "on", "true", "1":
		*r = true
	case "n", "no", "off", "false", "0":
		*r = false
	default:
		return fmt.Errorf("invalid remember value %q", text)
	}
	return nil
}

func (r *remember) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*r = remember(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid remember value %s", data)
	}
	return r.UnmarshalText([]byte(s))
}

func (f *loginForm) validate() fieldErrors {
	f.Email = strings.TrimSpace(f.Email)

	errs := fieldErrors{}
	requireEmail(errs, f.Email)
	if f.Password == "" {
		errs.add("password", msgRequiredField)
	}
	return errs
}

func requireEmail(errs fieldErrors, email string) {
	if email == "" {
		errs.add("email", msgRequiredField)
		return
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.add("email", msgInvalidEmail)
	}
}

// handleCreateUser registers a new account and logs it in.
func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var form newUserForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msgInvalidForm})
	}

	if errs := form.validate(); len(errs) > 0 {
		return invalidForm(c, errs)
	}

	ctx := c.Context()

	_, err := s.driver.GetUserByEmail(ctx, form.Email)
	switch {
	case err == nil:
		return invalidForm(c, fieldErrors{"email": msgEmailRegistered})
	case !storage.IsNotFound(err):
		return s.writeError(c, err)
	}

	hash, err := auth.Hash(form.Password)
	if err != nil {
		return s.writeError(c, err)
	}

	user := sample.NewUser(form.Email, form.Name, hash)
	if err := s.driver.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return invalidForm(c, fieldErrors{"email": msgEmailRegistered})
		}
		return s.writeError(c, err)
	}

	if err := s.startSession(c, user, true); err != nil {
		return s.writeError(c, err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(user)
}

// handleLogin checks the credentials and starts a session. Sessions are
// remembered unless the client opts out with remember=false.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	form := loginForm{Remember: true}
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msgInvalidForm})
	}

	if errs := form.validate(); len(errs) > 0 {
		return invalidForm(c, errs)
	}

	user, err := s.driver.GetUserByEmail(c.Context(), form.Email)
	if storage.IsNotFound(err) {
		return invalidForm(c, fieldErrors{"email": msgEmailUnknown})
	}
	if err != nil {
		return s.writeError(c, err)
	}

	err = auth.Verify(user.PasswordHash, form.Password)
	if errors.Is(err, auth.ErrMismatchedPassword) {
		return invalidForm(c, fieldErrors{"password": msgIncorrectPassword})
	}
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.startSession(c, user, bool(form.Remember)); err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(user)
}

// handleLogout ends the current session.
func (s *Server) handleLogout(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := sess.Destroy(); err != nil {
		return s.writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleMe returns the logged in user.
func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
