// Package errors provides structured, user-facing errors for wiretap.
//
// Internal packages return plain sentinel errors. At the edges (the control
// API and the CLI) those are converted into a *WiretapError carrying a
// stable code, a plain-language explanation and a hint:
//
//	err := errors.New("W001").
//	    WithSuggestion("Connect a client to /ws and wait for the first frame").
//	    Wrap(session.ErrTransportUnavailable)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR W001: Transport unavailable
//	//
//	//   No upstream connection has been observed yet, so nothing can be sent.
//	//
//	//   Hint: Connect a client to /ws and wait for the first frame
//
// # Error Codes
//
//   - W001-W039: runtime and transport
//   - W040-W059: protocol
//   - W100-W139: configuration and storage
//   - W140-W159: CLI
//
// Each code has an HTTP status used when the error is rendered by the
// control API.
package errors
