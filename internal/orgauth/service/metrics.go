package service

// Recorder receives auth outcomes. observability.Metrics implements it with
// Prometheus counters.
type Recorder interface {
	// SessionResolved is called once per resolution with the error code of
	// the failure, or "ok".
	SessionResolved(outcome string)
	OrganizationOverride(outcome string)
	AutoPromotion(rows int64, err error)
	Login(outcome string)
	SelectionExchanged(outcome string)
	HousekeepingDeleted(rows int64)
}

type nopRecorder struct{}

func (nopRecorder) SessionResolved(string)      {}
func (nopRecorder) OrganizationOverride(string) {}
func (nopRecorder) AutoPromotion(int64, error)  {}
func (nopRecorder) Login(string)                {}
func (nopRecorder) SelectionExchanged(string)   {}
func (nopRecorder) HousekeepingDeleted(int64)   {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
