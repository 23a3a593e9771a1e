package core

// CookMode records which cook-charge field the user edited last.
type CookMode string

const (
	CookModeTotal   CookMode = "total"
	CookModePerHead CookMode = "perHead"
)

// CookCharge keeps the total cook charge and the per-head rate in sync.
// The field matching Mode is authoritative; the other is derived from it and
// the number of non-guest members.
type CookCharge struct {
	Mode    CookMode `json:"mode"`
	Total   float64  `json:"total"`
	PerHead float64  `json:"perHead"`
}

// SetTotal makes the total authoritative.
func (c *CookCharge) SetTotal(total float64, nonGuest int) {
	c.Mode = CookModeTotal
	c.Total = total
	c.derive(nonGuest)
}

// SetPerHead makes the per-head rate authoritative.
func (c *CookCharge) SetPerHead(rate float64, nonGuest int) {
	c.Mode = CookModePerHead
	c.PerHead = rate
	c.derive(nonGuest)
}

// Resync recomputes the derived field after the membership count changed.
func (c *CookCharge) Resync(nonGuest int) {
	c.derive(nonGuest)
}

func (c *CookCharge) derive(nonGuest int) {
	switch c.Mode {
	case CookModePerHead:
		c.Total = c.PerHead * float64(nonGuest)
	default:
		c.Mode = CookModeTotal
		if nonGuest > 0 {
			c.PerHead = c.Total / float64(nonGuest)
		} else {
			c.PerHead = 0
		}
	}
}

// Period is the editable expense state of the current billing period: the
// raw cost fields plus the dual-entry cook charge.
type Period struct {
	Rice      float64    `json:"rice"`
	Marketing float64    `json:"marketing"`
	Gas       float64    `json:"gas"`
	Paper     float64    `json:"paper"`
	Other     float64    `json:"other"`
	BoundMeal float64    `json:"boundMeal"`
	Cook      CookCharge `json:"cook"`
}

// Inputs resolves the period into calculator inputs.
func (p Period) Inputs() ExpenseInputs {
	return ExpenseInputs{
		Rice:       p.Rice,
		Marketing:  p.Marketing,
		Gas:        p.Gas,
		Paper:      p.Paper,
		Other:      p.Other,
		CookCharge: p.Cook.Total,
		BoundMeal:  p.BoundMeal,
	}
}
