package instagram

import (
	"gramwatch-backend/lib/restyutil"
	"gramwatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("gramwatch.internal.scrapers.instagram")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables HTTP exchange dumps for every client
// constructed afterwards. used by the CLI in verbose mode.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

// instrumentHttp attaches exactly one set of span-opening middlewares to
// the client: the exchange-dump instrumentation when an output is
// configured, the plain otel one otherwise. registering both would open
// two spans per request and end only the inner one.
func instrumentHttp(client *resty.Client, tracerName string) {
	if restyInstrumentOutput != nil {
		restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
		return
	}
	telemetry.InstrumentResty(client, tracerName)
}
