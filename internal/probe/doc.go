// Package probe verifies IMAP credentials with a single, self-contained
// connection attempt and classifies the outcome.
//
// A probe is made of three cooperating pieces:
//   - the security negotiator (security.go) turns a security token into one of
//     implicit TLS, STARTTLS or plain and supplies the conventional port
//   - the session driver (session.go) connects, secures the transport,
//     authenticates, sanity-checks the session with a read-only SELECT and
//     logs out
//   - the result classifier (result.go) maps every fault into a fixed set of
//     categories with a stable detail message
//
// # Usage
//
//	req, err := probe.NewRequest("imap.example.com", 0, "alice@example.com",
//	    password, "ssl", 15*time.Second)
//	if err != nil {
//	    result := probe.Classify(probe.FormatLabel("alice@example.com",
//	        "imap.example.com", 0, "ssl"), err)
//	    fmt.Println(result)
//	    return
//	}
//
//	prober := probe.New(probe.WithLogger(logger))
//	result := prober.Probe(ctx, req)
//	fmt.Println(result) // [✅ OK] alice@example.com@imap.example.com:993 (implicit-tls): ...
//
// # Timeouts
//
// A request's Timeout bounds each blocking operation on its own: dialing
// (DNS resolution and TCP connect), the TLS handshake, the server greeting and
// every IMAP command. There is no process-wide timeout state, so a Prober can
// be shared by concurrent goroutines.
//
// # Credentials
//
// Passwords live only in the Request passed to Probe. Request never renders
// its password through fmt or slog, and Result carries no credential data.
package probe
