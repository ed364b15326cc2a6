package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Shani815/vctalenthub-sub000/infrastructure/config"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/di"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container

	coldStart     = true
	coldStartTime time.Time

	gatewayHeaders = []string{
		middleware.HeaderGatewayAuthorized,
		middleware.HeaderUserID,
		middleware.HeaderUserEmail,
		middleware.HeaderUserRoles,
	}
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true
	// Handler strips client copies of these headers before setting them
	cfg.TrustGatewayHeaders = true

	// Resources live for the lifetime of the execution environment, so the
	// cleanup function is never called.
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiRouter, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	// Never trust identity headers sent by the client itself
	for k := range req.Headers {
		for _, trusted := range gatewayHeaders {
			if strings.EqualFold(k, trusted) {
				delete(req.Headers, k)
			}
		}
	}

	// The API Gateway JWT authorizer has already validated the caller
	if jwt := authorizerClaims(req); jwt != nil {
		if sub := jwt["sub"]; sub != "" {
			req.Headers[middleware.HeaderGatewayAuthorized] = "true"
			req.Headers[middleware.HeaderUserID] = sub
			req.Headers[middleware.HeaderUserEmail] = jwt["email"]
		}
	}

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("request_id", req.RequestContext.RequestID),
			zap.Int("status_code", resp.StatusCode),
		)
	}

	return resp, err
}

func authorizerClaims(req events.APIGatewayV2HTTPRequest) map[string]string {
	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.JWT == nil {
		return nil
	}
	return req.RequestContext.Authorizer.JWT.Claims
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(Handler)
}
