package models

// DomainTotal is the summed time spent on one domain.
type DomainTotal struct {
	Domain  string `json:"domain"`
	Seconds int64  `json:"seconds"`
	Percent int    `json:"percent"`
}
