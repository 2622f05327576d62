package domain

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ChangeEvent describes one committed mutation. Data carries the full
// row after the operation; for OpDelete, the row as it was just before
// removal. Exactly one event is emitted per commit, after the commit.
type ChangeEvent struct {
	Op   Op   `json:"event"`
	Data Item `json:"data"`
}
