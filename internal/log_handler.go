package internal

// LogHandler is what the roaming components log through. id is the partner
// key a line concerns, empty for lines about the node itself.
type LogHandler interface {
	FeatureEvent(feature, id, text string)
	Debug(text string)
	Warn(text string)
	Error(text string, err error)
}

// Discard drops every line. Components fall back to it when built without a logger.
var Discard LogHandler = discard{}

type discard struct{}

func (discard) FeatureEvent(string, string, string) {}
func (discard) Debug(string) {}
func (discard) Warn(string) {}
func (discard) Error(string, error) {}

var _ LogHandler = (*Logger)(nil)
