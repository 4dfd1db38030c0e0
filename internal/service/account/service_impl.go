package account

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
	"github.com/dropDatabas3/doorman/internal/store"
	"github.com/dropDatabas3/doorman/internal/validation"
)

// Deps contains dependencies for the account service.
type Deps[D model.Data] struct {
	DAL store.DataAccessLayer[D]
	// Now permite inyectar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

type svc[D model.Data] struct {
	dal    store.DataAccessLayer[D]
	now    func() time.Time
	tracer trace.Tracer
}

// New creates the account Service.
func New[D model.Data](d Deps[D]) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &svc[D]{
		dal:    d.DAL,
		now:    d.Now,
		tracer: otel.Tracer("doorman/service/account"),
	}
}

// resolveUser autentica el bearer y devuelve su usuario. Tokens OAuth de
// grants no interactivos (sin browser session) no tienen cuenta detrás y se
// rechazan igual que un token desconocido.
func (s *svc[D]) resolveUser(ctx context.Context, bearer string) (*model.User[D], error) {
	kind, err := tokens.TypeOf(bearer)
	if err != nil {
		return nil, ErrUnauthorized
	}
	switch kind {
	case tokens.TypeCompatAccessToken:
		at, sess, err := s.dal.Compat().GetCompatAccessToken(ctx, bearer)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrUnauthorized
			}
			return nil, ErrServerError
		}
		if !at.ValidAt(s.now()) {
			return nil, ErrUnauthorized
		}
		u := sess.User
		return &u, nil
	case tokens.TypeAccessToken:
		at, sess, err := s.dal.OAuth().GetAccessToken(ctx, bearer)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrUnauthorized
			}
			return nil, ErrServerError
		}
		if !at.ValidAt(s.now()) || sess.BrowserSession == nil {
			return nil, ErrUnauthorized
		}
		u := sess.BrowserSession.User
		return &u, nil
	default:
		return nil, ErrUnauthorized
	}
}

func (s *svc[D]) Emails(ctx context.Context, bearer string) ([]repository.Email, error) {
	ctx, span := s.tracer.Start(ctx, "account.emails")
	defer span.End()

	user, err := s.resolveUser(ctx, bearer)
	if err != nil {
		return nil, err
	}
	list, err := s.dal.Users().GetEmails(ctx, user)
	if err != nil {
		span.RecordError(err)
		logger.From(ctx).Error("list emails", logger.Err(err))
		return nil, ErrServerError
	}
	return list, nil
}

func (s *svc[D]) AddEmail(ctx context.Context, bearer, address string) (repository.Email, error) {
	ctx, span := s.tracer.Start(ctx, "account.add_email")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("account.add_email"))

	user, err := s.resolveUser(ctx, bearer)
	if err != nil {
		return repository.Email{}, err
	}
	if !validation.ValidEmail(address) {
		return repository.Email{}, ErrInvalidAddress
	}
	e, err := s.dal.Users().AddEmail(ctx, user, address)
	if err != nil {
		if repository.IsConflict(err) {
			return repository.Email{}, ErrAddressExists
		}
		span.RecordError(err)
		log.Error("add email", logger.Err(err))
		return repository.Email{}, ErrServerError
	}
	log.Info("email added", logger.Username(user.Username))
	return e, nil
}

func (s *svc[D]) RemoveEmail(ctx context.Context, bearer, address string) error {
	ctx, span := s.tracer.Start(ctx, "account.remove_email")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("account.remove_email"))

	user, err := s.resolveUser(ctx, bearer)
	if err != nil {
		return err
	}
	if err := s.dal.Users().RemoveEmail(ctx, user, address); err != nil {
		if repository.IsNotFound(err) {
			return ErrAddressNotFound
		}
		span.RecordError(err)
		log.Error("remove email", logger.Err(err))
		return ErrServerError
	}
	log.Info("email removed", logger.Username(user.Username))
	return nil
}

func (s *svc[D]) SetPrimaryEmail(ctx context.Context, bearer, address string) error {
	ctx, span := s.tracer.Start(ctx, "account.set_primary_email")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("account.set_primary_email"))

	user, err := s.resolveUser(ctx, bearer)
	if err != nil {
		return err
	}
	if err := s.dal.Users().SetPrimaryEmail(ctx, user, address); err != nil {
		if repository.IsNotFound(err) {
			return ErrAddressNotFound
		}
		span.RecordError(err)
		log.Error("set primary email", logger.Err(err))
		return ErrServerError
	}
	return nil
}
