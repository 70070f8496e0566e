package enum

type EntityType string

const (
	RFP      EntityType = "RFP"
	PROPOSAL EntityType = "PROPOSAL"
	VENDOR   EntityType = "VENDOR"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
