// Package license talks to the licensing backend: device authorization checks
// and content key requests. Transient transport failures on key requests are
// retried with a linearly growing delay; explicit rejections are not.
package license
