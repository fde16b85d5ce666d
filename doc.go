// Package irpf computes the figures of the Brazilian income tax declaration
// (IRPF) for investments traded on B3.
//
// The core functionalities include:
//   - Ledger: asset declarations, negotiations, earnings, bonuses,
//     subscriptions and corporate events, decoded from and encoded to JSONL.
//   - NegotiationReport: a day by day replay of the ledger keeping an average
//     cost position per ticker, seeded by the positions saved at the end of
//     the previous period.
//   - StatsReport: the monthly capital gains of each tax category, with loss
//     compensation, the stock sales exemption and the tax carried under the
//     DARF minimum.
//   - Snapshots and Registry: the interfaces persisting positions, statistics,
//     tax records and the bonus and subscription figures. MemoryStore keeps
//     them in memory, the store package in SQLite.
//
// This package serves as the foundational logic for the `b3irpf` command-line
// tool.
package irpf
