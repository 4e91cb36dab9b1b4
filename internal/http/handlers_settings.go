package http

import (
	"errors"
	"io"
	"net/http"

	"finflow/internal/core"
	"finflow/internal/services"
)

const settingsPath = "/settings/"

// maxSettingsBytes leaves room for the text fields next to the largest logo.
const maxSettingsBytes = services.MaxLogoBytes + 64<<10

var errMalformedForm = core.Invalid("form", "Malformed form body.")

type settingsPage struct {
	User    core.User
	Profile core.Profile
	LogoURL string
}

type profileJSON struct {
	User         userJSON `json:"user"`
	BusinessName string   `json:"business_name"`
	LogoURL      string   `json:"logo_url,omitempty"`
	CurrentYear  int      `json:"current_year"`
}

func logoURL(p core.Profile) string {
	if p.LogoPath == "" {
		return ""
	}
	return "/media/logos/" + p.LogoPath
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	u, p, err := s.svc.Profiles.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}
	if isPartial(r) {
		NewHTMXResponse().JSON(profileJSON{
			User:         userView(u),
			BusinessName: p.BusinessName,
			LogoURL:      logoURL(p),
			CurrentYear:  p.CurrentYear,
		}).Write(w)
		return
	}
	s.render(w, r, "settings.html", "Settings", settingsPage{User: u, Profile: p, LogoURL: logoURL(p)})
}

// handleUpdateSettings accepts multipart (with an optional business_logo) or
// plain form posts.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsBytes)
	if err := r.ParseMultipartForm(maxSettingsBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, services.ErrLogoTooLarge, settingsPath)
			return
		}
		s.fail(w, r, errMalformedForm, settingsPath)
		return
	}

	in := services.SettingsInput{
		FirstName:    sanitizeInput(r.FormValue("first_name")),
		LastName:     sanitizeInput(r.FormValue("last_name")),
		Email:        sanitizeInput(r.FormValue("email")),
		BusinessName: sanitizeInput(r.FormValue("business_name")),
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["business_logo"]; len(files) > 0 && files[0].Size > 0 {
			fh := files[0]
			if fh.Size > services.MaxLogoBytes {
				s.fail(w, r, services.ErrLogoTooLarge, settingsPath)
				return
			}
			f, err := fh.Open()
			if err != nil {
				s.fail(w, r, core.Upstream(err), settingsPath)
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, services.MaxLogoBytes+1))
			_ = f.Close()
			if err != nil {
				s.fail(w, r, core.Upstream(err), settingsPath)
				return
			}
			in.Logo = &services.Upload{Filename: fh.Filename, Data: data}
		}
	}

	u, p, err := s.svc.Profiles.Update(r.Context(), currentUser(r).ID, in)
	if err != nil {
		s.fail(w, r, err, settingsPath)
		return
	}

	const msg = "Settings updated successfully."
	if isPartial(r) {
		NewHTMXResponse().
			TriggerSuccessNotification(msg).
			JSON(profileJSON{
				User:         userView(u),
				BusinessName: p.BusinessName,
				LogoURL:      logoURL(p),
				CurrentYear:  p.CurrentYear,
			}).
			Write(w)
		return
	}
	redirect(w, r, settingsPath, NotificationSuccess, msg)
}
