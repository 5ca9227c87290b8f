package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the AWS API error code wrapped in err (e.g. "ProvisionedThroughputExceededException"),
// or "" when err did not come from an AWS API call.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
