package relay

import "github.com/mossy-p/voxa-signaling/internal/models"

// Observer receives relay events. Methods are called while the relay lock is
// held, so implementations must return quickly and must not call back into
// the Relay.
type Observer interface {
	QueueChanged(tag string, waiting int)
	SessionStarted(info models.SessionInfo)
	SessionEnded(info models.SessionInfo, reason EndReason)
	Forwarded(t models.SignalType)
	MessageDropped(code string)
}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) QueueChanged(tag string, waiting int) {
	for _, ob := range o {
		ob.QueueChanged(tag, waiting)
	}
}

func (o Observers) SessionStarted(info models.SessionInfo) {
	for _, ob := range o {
		ob.SessionStarted(info)
	}
}

func (o Observers) SessionEnded(info models.SessionInfo, reason EndReason) {
	for _, ob := range o {
		ob.SessionEnded(info, reason)
	}
}

func (o Observers) Forwarded(t models.SignalType) {
	for _, ob := range o {
		ob.Forwarded(t)
	}
}

func (o Observers) MessageDropped(code string) {
	for _, ob := range o {
		ob.MessageDropped(code)
	}
}
