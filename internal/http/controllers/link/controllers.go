// Package link contains controllers for the account-linking endpoints.
package link

import svc "github.com/influmart/influmart/internal/http/services/link"

// Controllers agrupa los controllers del flujo de vinculación.
type Controllers struct {
	Start    *StartController
	Callback *CallbackController
}

// Deps contains the services and redirect targets for the controllers.
type Deps struct {
	Start    svc.StartService
	Callback svc.CallbackService

	// ErrorRedirectURL, when set, turns callback failures into a redirect to
	// the front-end error path instead of a 500 JSON body.
	ErrorRedirectURL string
}

// NewControllers creates the link controllers aggregator.
func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Start:    NewStartController(d.Start),
		Callback: NewCallbackController(d.Callback, d.ErrorRedirectURL),
	}
}
