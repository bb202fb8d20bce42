package wire

import "errors"

var errImpossibleTransition = errors.New("wire: impossible greet-type bit transition")
