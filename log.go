package zkauth

import (
	"github.com/sirupsen/logrus"

	"github.com/biolock/zkauth/challenge"
	"github.com/biolock/zkauth/magiclink"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.StandardLogger()
	challenge.Logger = Logger
	magiclink.Logger = Logger
}
