package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"causemap/infrastructure/config"
	"causemap/infrastructure/di"
)

var (
	// chiLambda wraps the chi router for the API Gateway proxy.
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container

	coldStart     = true
	coldStartTime time.Time
)

// init runs during cold start.
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	handler := container.Router.Setup()
	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler proxies API Gateway requests into the chi router. The JWT
// authorizer has already validated the token, so the authorizer claims
// are forwarded as trusted identity headers for the gateway middleware.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	claims := authorizerClaims(req)
	if sub := claims["sub"]; sub != "" {
		req.Headers["X-API-Gateway-Authorized"] = "true"
		req.Headers["X-User-ID"] = sub
		if email := claims["email"]; email != "" {
			req.Headers["X-User-Email"] = email
		}
		if roles := claims["roles"]; roles != "" {
			req.Headers["X-User-Roles"] = roles
		}
	} else {
		container.Logger.Warn("Request reached Lambda without authorizer claims",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("method", req.RequestContext.HTTP.Method),
		)
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
			zap.Int("status_code", resp.StatusCode),
			zap.String("request_id", req.RequestContext.RequestID),
		)
	}

	return resp, err
}

// authorizerClaims flattens the JWT authorizer claims. Role lists come
// through as bracketed strings and are normalized to CSV.
func authorizerClaims(req events.APIGatewayV2HTTPRequest) map[string]string {
	claims := make(map[string]string)
	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.JWT == nil {
		return claims
	}
	for key, value := range req.RequestContext.Authorizer.JWT.Claims {
		value = strings.Trim(value, "[]")
		value = strings.ReplaceAll(value, " ", ",")
		claims[key] = value
	}
	return claims
}

func main() {
	lambda.Start(Handler)
}
