// FILE: src/internal/deliver/headers.go
package deliver

import (
	"teralog/src/internal/version"

	"github.com/valyala/fasthttp"
)

// setHeaders applies the API headers to an outgoing request. When
// browserHeaders is on, a browser-shaped header set is added for
// endpoints sitting behind bot mitigation.
func (e *Engine) setHeaders(req *fasthttp.Request) {
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("X-Log-Type", e.logType)
	req.Header.Set("X-SDK-Version", version.Short())
	req.Header.Set("X-Instance-ID", e.instanceID)
	req.Header.Set("User-Agent", version.UserAgent())

	if e.browserHeaders {
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Accept-Language", "en-US,en;q=0.8")
		req.Header.Set("Origin", "https://poc.teraops.ai")
		req.Header.Set("Referer", "https://poc.teraops.ai/")
		req.Header.Set("sec-ch-ua", `"Brave";v="143", "Chromium";v="143"`)
		req.Header.Set("sec-ch-ua-mobile", "?0")
		req.Header.Set("sec-ch-ua-platform", `"Linux"`)
		req.Header.Set("sec-fetch-dest", "empty")
		req.Header.Set("sec-fetch-mode", "cors")
		req.Header.Set("sec-fetch-site", "same-site")
	}
}
