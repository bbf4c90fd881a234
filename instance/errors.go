// SPDX-License-Identifier: MIT

package instance

import "errors"

// ErrInvalid wraps every parse, validation and build failure of an instance.
var ErrInvalid = errors.New("instance: invalid")
