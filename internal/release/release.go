// Package release resolves the release identifier advertised by the health
// payload from SSM Parameter Store, where deploy pipelines record it.
package release

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/healthili/internal/xerrors"
)

// GetParameterAPI is the slice of the SSM client needed here.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// FromSSM reads the parameter name and returns its trimmed value. Missing and
// blank values are errors.
func FromSSM(ctx context.Context, api GetParameterAPI, name string) (string, error) {
	if name == "" {
		return "", xerrors.New("ssm parameter name is required")
	}
	out, err := api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return v, nil
}
