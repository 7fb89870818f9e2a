package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type TournamentStackProps struct {
	awscdk.StackProps
}

// NewTournamentStack deploys the API as a Lambda behind API Gateway and a
// bucket that receives the archived results. The websocket feed is only
// served by the standalone binary.
func NewTournamentStack(scope constructs.Construct, id string, props *TournamentStackProps) awscdk.Stack {
	var stackProps awscdk.StackProps
	if props != nil {
		stackProps = props.StackProps
	}

	stack := awscdk.NewStack(scope, &id, &stackProps)

	results := awss3.NewBucket(stack, jsii.String("ResultsBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		Versioned:         jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
	})

	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		origins = "*"
	}

	lambdaFn := awslambda.NewFunction(stack, jsii.String("TournamentApi"), &awslambda.FunctionProps{
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Architecture: awslambda.Architecture_ARM_64(),
		Handler:      jsii.String("bootstrap"),
		Code:         awslambda.Code_FromAsset(jsii.String("../dist"), nil),
		MemorySize:   jsii.Number(256),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(15)),
		Environment: &map[string]*string{
			"APP":                  jsii.String("prod"),
			"LOG_LEVEL":            jsii.String("info"),
			"CORS_ALLOWED_ORIGINS": jsii.String(origins),
			"ARCHIVE_S3_BUCKET":    results.BucketName(),
			"ARCHIVE_S3_REGION":    stack.Region(),
		},
	})

	results.GrantPut(lambdaFn, jsii.String("sessions/*"))

	api := awsapigateway.NewLambdaRestApi(stack, jsii.String("TournamentApiGateway"), &awsapigateway.LambdaRestApiProps{
		Handler: lambdaFn,
	})

	awscdk.NewCfnOutput(stack, jsii.String("ResultsBucketName"), &awscdk.CfnOutputProps{Value: results.BucketName()})
	awscdk.NewCfnOutput(stack, jsii.String("ApiUrl"), &awscdk.CfnOutputProps{Value: api.Url()})

	return stack
}

func main() {
	app := awscdk.NewApp(nil)
	NewTournamentStack(app, "PesTournamentStack", &TournamentStackProps{})
	app.Synth(nil)
}
