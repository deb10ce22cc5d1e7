// Package degiro is a client for the private DEGIRO web trader API.
//
// A Client is bootstrapped with Login (or Resume for an existing session),
// which chains the login call, the config call that returns the per-session
// routing URLs and the client-info call that returns the account id. Every
// other operation needs that state:
//
//	c := degiro.NewClient(degiro.WithCredentials(user, pass))
//	if _, err := c.Login(ctx); err != nil {
//		return err
//	}
//	funds, err := c.GetCashFunds(ctx)
//
// Errors are typed: *AuthenticationError, *HTTPError, *DataShapeError,
// *ParseError and *TimeoutError, matched with errors.As.
package degiro
