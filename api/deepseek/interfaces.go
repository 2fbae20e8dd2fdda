package deepseek

import (
	http "github.com/bogdanfinn/fhttp"

	"github.com/maxduke/go-deepseek-api/pow"
)

//go:generate mockgen -source=interfaces.go -destination=./client_mock.go -package=deepseek

// Transport is satisfied by tls_client.HttpClient.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

type Solver interface {
	Solve(ch pow.Challenge) (pow.Solution, error)
}
