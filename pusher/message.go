package pusher

type Channel string

const (
	Responses Channel = "roaming_responses"
)
