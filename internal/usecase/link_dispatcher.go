package usecase

import (
	"slices"
	"strings"

	"xnema-web/internal/domain/entity"
)

const (
	MessageEnterEmail   = "Informe seu e-mail para receber o link de redefinição de senha."
	MessageInvalidLink  = "Link inválido ou expirado. Solicite um novo link de redefinição."
	MessageResetReady   = "Defina sua nova senha."
	MessageFlowTypeDeny = "Este link não é um link de redefinição de senha. Solicite um novo link."
)

// LinkParams are the recovery parameters found on the arrival URL
type LinkParams struct {
	AccessToken      string `query:"access_token"`
	RefreshToken     string `query:"refresh_token"`
	Type             string `query:"type"`
	Error            string `query:"error"`
	ErrorCode        string `query:"error_code"`
	ErrorDescription string `query:"error_description"`
}

// FlowTypePolicy decides which link types may open the reset form
type FlowTypePolicy struct {
	Allowed []string
	Lenient bool
}

func (p FlowTypePolicy) accepts(flowType string) bool {
	if flowType == "" {
		return true
	}
	return slices.ContainsFunc(p.Allowed, func(allowed string) bool {
		return strings.EqualFold(allowed, flowType)
	})
}

// Dispatch is the entry decision for one arrival
type Dispatch struct {
	State   entity.FlowState
	Request *entity.RecoveryRequest
	Message string

	// FlowTypeMismatch is set when a token was accepted despite an unexpected type
	FlowTypeMismatch bool
}

// DispatchLink picks exactly one entry state from the arrival parameters.
// An error parameter wins over everything else, a missing access token means the
// user came without a link, and a present token continues to session binding.
func DispatchLink(p LinkParams, policy FlowTypePolicy) Dispatch {
	req := &entity.RecoveryRequest{
		AccessToken:      strings.TrimSpace(p.AccessToken),
		RefreshToken:     strings.TrimSpace(p.RefreshToken),
		FlowType:         strings.TrimSpace(p.Type),
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
	}

	if p.Error != "" {
		msg := strings.TrimSpace(p.ErrorDescription)
		if msg == "" {
			msg = MessageInvalidLink
		}
		return Dispatch{State: entity.StateInvalidLink, Request: req, Message: msg}
	}

	if req.AccessToken == "" {
		return Dispatch{State: entity.StateEmailRequestForm, Request: req, Message: MessageEnterEmail}
	}

	if !policy.accepts(req.FlowType) {
		if !policy.Lenient {
			return Dispatch{State: entity.StateInvalidLink, Request: req, Message: MessageFlowTypeDeny}
		}
		return Dispatch{State: entity.StateAwaitingLinkValidation, Request: req, FlowTypeMismatch: true}
	}

	return Dispatch{State: entity.StateAwaitingLinkValidation, Request: req}
}
