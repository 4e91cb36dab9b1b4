package http

import (
	"errors"
	"net/http"

	"finflow/internal/core"
	flog "finflow/internal/log"
	"finflow/internal/services"
)

type authForm struct {
	Error     string
	Next      string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// sessionUser resolves the session cookie on public pages.
func (s *Server) sessionUser(r *http.Request) (core.User, bool) {
	uid, err := s.sessions.FromRequest(r)
	if err != nil {
		return core.User{}, false
	}
	u, err := s.svc.Auth.User(r.Context(), uid)
	return u, err == nil
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", "Login", authForm{Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, loginPath)
		return
	}
	form := authForm{Username: p.Get("username"), Next: safeNext(p.Get("next"))}

	u, err := s.svc.Auth.Login(r.Context(), form.Username, p.Raw("password"))
	if err != nil {
		if isPartial(r) || !errors.Is(err, core.ErrValidation) {
			s.fail(w, r, err, loginPath)
			return
		}
		form.Error = core.PublicMessage(err)
		s.renderStatus(w, r, http.StatusUnauthorized, "login.html", "Login", form)
		return
	}

	if err := s.sessions.SetCookie(w, u.ID); err != nil {
		s.fail(w, r, core.Upstream(err), loginPath)
		return
	}
	flog.FromContext(r.Context()).WithComponent(flog.ComponentAuth).InfoContext(r.Context(), "User logged in",
		flog.FieldUserID, u.ID)

	msg := "Welcome back, " + u.Username + "!"
	if isPartial(r) {
		NewHTMXResponse().
			TriggerSuccessNotification(msg).
			Header("HX-Redirect", form.Next).
			JSON(map[string]any{"user": userView(u), "redirect": form.Next}).
			Write(w)
		return
	}
	redirect(w, r, form.Next, NotificationSuccess, msg)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, "register.html", "Register", authForm{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, "/accounts/register/")
		return
	}
	in := services.RegisterInput{
		Username:        p.Get("username"),
		Email:           p.Get("email"),
		FirstName:       p.Get("first_name"),
		LastName:        p.Get("last_name"),
		Password:        p.Raw("password1"),
		ConfirmPassword: p.Raw("password2"),
	}

	u, err := s.svc.Auth.Register(r.Context(), in)
	if err != nil {
		if isPartial(r) || !errors.Is(err, core.ErrValidation) {
			s.fail(w, r, err, "/accounts/register/")
			return
		}
		form := authForm{
			Error:     core.PublicMessage(err),
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
		}
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", "Register", form)
		return
	}

	const msg = "Account created successfully. Please log in."
	if isPartial(r) {
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerSuccessNotification(msg).
			JSON(map[string]any{"user": userView(u)}).
			Write(w)
		return
	}
	redirect(w, r, loginPath, NotificationSuccess, msg)
}

// handleLogout is POST only so a link prefetch cannot end the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	const msg = "You have been logged out successfully."
	if isPartial(r) {
		NewHTMXResponse().
			TriggerSuccessNotification(msg).
			Header("HX-Redirect", loginPath).
			JSON(map[string]string{"redirect": loginPath}).
			Write(w)
		return
	}
	redirect(w, r, loginPath, NotificationSuccess, msg)
}

type userJSON struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func userView(u core.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}
