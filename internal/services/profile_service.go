package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"finflow/internal/core"
	flog "finflow/internal/log"
)

// MaxLogoBytes caps uploaded business logos.
const MaxLogoBytes = 2 << 20

var (
	ErrLogoTooLarge = core.Invalid("business_logo", "Logo must be 2 MB or smaller.")
	ErrLogoType     = core.Invalid("business_logo", "Logo must be a PNG, JPEG or GIF image.")
)

var logoExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// Upload is a file received from a form.
type Upload struct {
	Filename string
	Data     []byte
}

// SettingsInput is the settings form. A nil Logo keeps the current one.
type SettingsInput struct {
	FirstName    string
	LastName     string
	Email        string
	BusinessName string
	Logo         *Upload
}

// ProfileService edits account details and the business profile.
type ProfileService struct {
	users     UserStore
	uploadDir string
	now       func() time.Time
}

func NewProfileService(users UserStore, uploadDir string) *ProfileService {
	return &ProfileService{users: users, uploadDir: uploadDir, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (core.User, core.Profile, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return core.User{}, core.Profile{}, classify("get user", err)
	}
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return core.User{}, core.Profile{}, classify("get profile", err)
	}
	return u, p, nil
}

// Update saves the form and stamps the profile with the current year. The
// form is fully validated before a new logo touches the disk, and a replaced
// logo is removed once the rows are committed.
func (s *ProfileService) Update(ctx context.Context, userID int64, in SettingsInput) (core.User, core.Profile, error) {
	u, p, err := s.Get(ctx, userID)
	if err != nil {
		return core.User{}, core.Profile{}, err
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return core.User{}, core.Profile{}, core.Invalid("email", "Email is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, core.Profile{}, ErrInvalidEmail
	}
	if email != u.Email {
		_, taken, err := s.users.UserTaken(ctx, "", email)
		if err != nil {
			return core.User{}, core.Profile{}, classify("check email", err)
		}
		if taken {
			return core.User{}, core.Profile{}, core.ErrEmailTaken
		}
	}

	var ext string
	if in.Logo != nil && len(in.Logo.Data) > 0 {
		if ext, err = logoExtension(in.Logo); err != nil {
			return core.User{}, core.Profile{}, err
		}
	}

	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Email = email
	p.BusinessName = strings.TrimSpace(in.BusinessName)
	p.CurrentYear = s.now().Year()

	oldLogo := p.LogoPath
	if ext != "" {
		if p.LogoPath, err = s.writeLogo(userID, in.Logo.Data, ext); err != nil {
			return core.User{}, core.Profile{}, err
		}
	}

	if err := s.users.SaveSettings(ctx, u, p); err != nil {
		if p.LogoPath != oldLogo {
			s.removeLogo(ctx, p.LogoPath)
		}
		return core.User{}, core.Profile{}, classify("save settings", err)
	}
	if p.LogoPath != oldLogo && oldLogo != "" {
		s.removeLogo(ctx, oldLogo)
	}
	return u, p, nil
}

// LogoFile resolves a stored logo reference to a path under the upload dir.
func (s *ProfileService) LogoFile(ref string) (string, bool) {
	name := filepath.Base(ref)
	if ref == "" || name != ref || strings.HasPrefix(name, ".") {
		return "", false
	}
	return filepath.Join(s.uploadDir, "logos", name), true
}

// logoExtension checks size and sniffed type and returns the file extension.
func logoExtension(up *Upload) (string, error) {
	if len(up.Data) > MaxLogoBytes {
		return "", ErrLogoTooLarge
	}
	ext, ok := logoExtensions[http.DetectContentType(up.Data)]
	if !ok {
		return "", ErrLogoType
	}
	return ext, nil
}

func (s *ProfileService) writeLogo(userID int64, data []byte, ext string) (string, error) {
	dir := filepath.Join(s.uploadDir, "logos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", core.Upstream(fmt.Errorf("create logo dir: %w", err))
	}
	name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", core.Upstream(fmt.Errorf("write logo: %w", err))
	}
	return name, nil
}

// removeLogo deletes a stored logo. Failures are logged, not returned.
func (s *ProfileService) removeLogo(ctx context.Context, ref string) {
	path, ok := s.LogoFile(ref)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "Failed to remove logo",
			flog.FieldComponent, flog.ComponentStorage,
			"logo", ref,
			flog.FieldError, err)
	}
}
