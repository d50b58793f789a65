package rawtar

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger

func init() {
	// Give a default logger at the start to avoid a nil-pointer panic; it is
	// never raised above Debug internally, so a caller who never calls
	// SetLogger sees nothing on the default logrus level.
	log = logrus.New()
}

// SetLogger replaces the package-level logger used for Debug-level tracing
// of header classification, PAX merges, and sparse-map resolution.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}
