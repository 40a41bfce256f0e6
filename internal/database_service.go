package internal

type Database interface {
	WriteLogMessage(data Data) error
	ReadLog(limit int64) ([]FeatureLogMessage, error)
	WriteEvent(data Data) error
}

type Data interface {
	DataType() string
}
