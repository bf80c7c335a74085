package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/mailer"
	"github.com/nutrio/nutrio/pkg/apperr"
)

// Patients is the slice of the patient service invitations depend on.
type Patients interface {
	AuthorizeOwner(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	LinkUser(ctx context.Context, id, userID uuid.UUID) error
}

type Service struct {
	repo     Repository
	patients Patients
	mail     mailer.Sender
	tx       db.Transactor
	appURL   string
	validate *validator.Validate
	now      func() time.Time
	token    func() (string, error)
}

func NewService(repo Repository, patients Patients, mail mailer.Sender, tx db.Transactor, appURL string) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		mail:     mail,
		tx:       tx,
		appURL:   strings.TrimRight(appURL, "/"),
		validate: validator.New(),
		now:      time.Now,
		token:    newToken,
	}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Invite stores an invitation for the patient and e-mails the link. The row
// is only kept when the e-mail was handed to the mail server.
func (s *Service) Invite(ctx context.Context, patientID uuid.UUID, email string) (*Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Invalid("a valid email is required")
	}
	p, err := s.patients.AuthorizeOwner(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p.UserID != nil {
		return nil, apperr.Conflict("patient already has an account")
	}

	now := s.now().UTC()
	if _, err := s.repo.FindPending(ctx, email, now); err == nil {
		return nil, apperr.Conflict("a pending invitation already exists for %s", email)
	} else if !db.IsNotFound(err) {
		return nil, err
	}

	token, err := s.token()
	if err != nil {
		return nil, err
	}
	inv := &Invitation{
		NutritionistID: p.NutritionistID,
		PatientID:      p.ID,
		Email:          email,
		Token:          token,
		ExpiresAt:      now.Add(TTL),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}
		return s.mail.Send(ctx, s.message(p, inv))
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) link(inv *Invitation) string {
	return s.appURL + "/accept-invitation?token=" + url.QueryEscape(inv.Token)
}

func (s *Service) message(p *patient.Patient, inv *Invitation) mailer.Message {
	link := s.link(inv)
	expires := inv.ExpiresAt.Format("2006-01-02")
	return mailer.Message{
		To:      inv.Email,
		Subject: "Your nutrition portal invitation",
		TextBody: fmt.Sprintf("Hello %s,\n\nYou have been invited to follow your nutrition plan online.\n"+
			"Open %s to create your account. The link expires on %s.\n", p.FullName, link, expires),
		HTMLBody: fmt.Sprintf(`<p>Hello %s,</p><p>You have been invited to follow your nutrition plan online.</p>`+
			`<p><a href="%s">Create your account</a>. The link expires on %s.</p>`,
			html.EscapeString(p.FullName), link, expires),
	}
}

// Accept links the calling user to the invited patient record.
func (s *Service) Accept(ctx context.Context, token string) (*Invitation, error) {
	uid := auth.UserIDFromContext(ctx)
	if uid == uuid.Nil {
		return nil, apperr.Forbidden("authentication required")
	}
	inv, err := s.repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("invitation")
		}
		return nil, err
	}
	now := s.now().UTC()
	if !inv.Pending(now) {
		return nil, apperr.Conflict("invitation is no longer valid")
	}
	if email := auth.EmailFromContext(ctx); email != "" && !strings.EqualFold(email, inv.Email) {
		return nil, apperr.Forbidden("invitation was sent to a different email")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.patients.LinkUser(ctx, inv.PatientID, uid); err != nil {
			return err
		}
		return s.repo.MarkAccepted(ctx, inv.ID, now)
	})
	if err != nil {
		return nil, err
	}
	inv.AcceptedAt = &now
	return inv, nil
}
