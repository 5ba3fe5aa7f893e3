// Package transmission provides a client for the Transmission daemon's JSON RPC.
//
// The daemon guards its RPC endpoint with a session token: the first request of a
// connection, and any request carrying an outdated token, is answered with HTTP 409
// and a fresh X-Transmission-Session-Id header. The client stores that token in the
// connection's Session and reissues the call once.
//
// # Architecture
//
//   - Session: endpoint, credentials and the last session token for one server
//   - Codec: one argument type per RPC method and one decoder per response shape
//   - BuildRequest: pure construction of the authenticated POST
//   - Client: the status-code state machine and one method per operation
//
// # Usage
//
//	host := transmission.Host{Name: "seedbox", Server: "10.0.0.5", Port: 9091, Username: "admin"}
//	client, err := transmission.NewHostClient(host, password, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	torrents, err := client.ListTorrents(ctx)
//	if err != nil {
//		fmt.Println(transmission.Diagnostic(err))
//	}
//
// # Error Handling
//
// Every operation returns a *Error on failure. Its Outcome is one of:
//
//   - OutcomeForbidden: the daemon answered 401
//   - OutcomeConfigError: no response was received (network, DNS, TLS, timeout)
//   - OutcomeFailed: any other status, or a 200 whose body could not be decoded
//   - OutcomeRejected: a 200 whose result field reported an error, or a duplicate add
//
// A 409 is never returned to callers unless the refreshed token is rejected again.
//
//	switch transmission.OutcomeOf(err) {
//	case transmission.OutcomeForbidden:
//		// ask for new credentials
//	case transmission.OutcomeConfigError:
//		// retry later
//	}
package transmission
