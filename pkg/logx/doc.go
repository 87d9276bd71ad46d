// Package logx configures revbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional Webex sink forwarding warn+ records to an operator
//     (min-level + rate limiting)
package logx
