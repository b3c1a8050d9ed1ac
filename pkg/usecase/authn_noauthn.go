package usecase

import (
	"context"

	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	principal auth.Principal
}

var _ AuthUseCaseInterface = &NoAuthnUseCase{}

func NewNoAuthnUseCase(userID types.UserID, name string) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		principal: auth.Principal{UserID: userID, Name: name},
	}
}

// Authenticate ignores the credential and returns the configured user
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, bearer string) (auth.Principal, error) {
	return uc.principal, nil
}

func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
