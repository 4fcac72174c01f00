package system

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sdkforge/sdkforge-cli/internal/version"
)

const repositoryIndexURL = "https://dl.google.com/android/repository/repository2-1.xml"

// NetworkChecker probes the endpoints the engine downloads archives from.
type NetworkChecker struct {
	logger Logger
	client *http.Client
}

// NewNetworkChecker creates a checker with conservative per-probe timeouts.
func NewNetworkChecker(logger Logger) *NetworkChecker {
	return &NetworkChecker{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

// NetworkStatus is the outcome of one reachability probe.
type NetworkStatus struct {
	Connected    bool          `json:"connected"`
	DNSWorking   bool          `json:"dns_working"`
	HTTPSWorking bool          `json:"https_working"`
	Latency      time.Duration `json:"latency"`
	Error        string        `json:"error,omitempty"`
}

// ConnectivityTest names one endpoint worth probing.
type ConnectivityTest struct {
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	Timeout      time.Duration `json:"timeout"`
	ExpectedCode int           `json:"expected_code"`
	Required     bool          `json:"required"`
}

// NetworkDiagnostic aggregates the probe outcomes for a set of endpoints.
type NetworkDiagnostic struct {
	Timestamp   time.Time                   `json:"timestamp"`
	Tests       map[string]ConnectivityTest `json:"tests"`
	Results     map[string]NetworkStatus    `json:"results"`
	Suggestions []string                    `json:"suggestions"`
}

// CheckBasicConnectivity answers whether the Google repository is reachable
// at all. DNS is resolved separately from the TLS fetch so the two failure
// modes stay distinguishable in the report.
func (nc *NetworkChecker) CheckBasicConnectivity() *NetworkStatus {
	status := &NetworkStatus{}
	start := time.Now()

	if nc.logger != nil {
		nc.logger.Debug("Resolving repository host...")
	}
	if _, err := net.LookupHost("dl.google.com"); err != nil {
		status.Error = fmt.Sprintf("DNS resolution failed: %v", err)
		return status
	}
	status.DNSWorking = true

	if nc.logger != nil {
		nc.logger.Debug("Fetching repository index over HTTPS...")
	}
	resp, err := nc.client.Get(repositoryIndexURL)
	if err != nil {
		status.Error = fmt.Sprintf("HTTPS connectivity failed: %v", err)
		return status
	}
	resp.Body.Close()

	status.Latency = time.Since(start)
	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("repository index returned status %d", resp.StatusCode)
		return status
	}

	status.HTTPSWorking = true
	status.Connected = true
	return status
}

// CheckConnectivity probes every given endpoint. It never aborts early:
// partial reachability is exactly what mirror users need to see.
func (nc *NetworkChecker) CheckConnectivity(tests []ConnectivityTest) *NetworkDiagnostic {
	diagnostic := &NetworkDiagnostic{
		Timestamp:   time.Now(),
		Tests:       make(map[string]ConnectivityTest, len(tests)),
		Results:     make(map[string]NetworkStatus, len(tests)),
		Suggestions: []string{},
	}

	var failedRequired, failedOptional []string
	for _, test := range tests {
		diagnostic.Tests[test.Name] = test

		if nc.logger != nil {
			nc.logger.Debug("Probing %s (%s)", test.Name, test.URL)
		}
		result := nc.probe(test)
		diagnostic.Results[test.Name] = result

		if result.Connected {
			continue
		}
		if test.Required {
			failedRequired = append(failedRequired, test.Name)
		} else {
			failedOptional = append(failedOptional, test.Name)
		}
	}

	if len(failedRequired) > 0 {
		diagnostic.Suggestions = append(diagnostic.Suggestions,
			fmt.Sprintf("Downloads cannot work while these are unreachable: %s", strings.Join(failedRequired, ", ")),
			"Check whether a firewall or proxy blocks dl.google.com",
			"Point download.base_url at a reachable mirror if you use one")
	}
	if len(failedOptional) > 0 {
		diagnostic.Suggestions = append(diagnostic.Suggestions,
			fmt.Sprintf("Unreachable but not needed for installs: %s", strings.Join(failedOptional, ", ")))
	}

	return diagnostic
}

// probe issues one GET and classifies the response against the expectation.
func (nc *NetworkChecker) probe(test ConnectivityTest) NetworkStatus {
	var status NetworkStatus

	ctx, cancel := context.WithTimeout(context.Background(), test.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, test.URL, nil)
	if err != nil {
		status.Error = fmt.Sprintf("invalid probe URL: %v", err)
		return status
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := nc.client.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		return status
	}
	resp.Body.Close()
	status.Latency = time.Since(start)

	want := test.ExpectedCode
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		status.Error = fmt.Sprintf("status %d, expected %d", resp.StatusCode, want)
		return status
	}

	status.Connected = true
	status.HTTPSWorking = true
	return status
}

// GetDefaultConnectivityTests returns the endpoints installs depend on. Only
// the repository itself is required; the rest is advisory.
func GetDefaultConnectivityTests() []ConnectivityTest {
	return []ConnectivityTest{
		{
			Name:         "Google repository",
			URL:          repositoryIndexURL,
			Timeout:      10 * time.Second,
			ExpectedCode: http.StatusOK,
			Required:     true,
		},
		{
			Name:         "Android developer portal",
			URL:          "https://developer.android.com",
			Timeout:      10 * time.Second,
			ExpectedCode: http.StatusOK,
			Required:     false,
		},
	}
}

// DiagnoseNetworkIssue maps a transport error onto advice a user can act on.
// Substring matching is all net/http leaves us; the strings below are stable
// across Go releases in practice.
func (nc *NetworkChecker) DiagnoseNetworkIssue(err error) []string {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return []string{
			"The repository did not answer in time",
			"Retry on a faster connection, or raise download.timeout in the config",
		}
	case strings.Contains(msg, "no such host"):
		return []string{
			"DNS cannot resolve dl.google.com",
			"Check /etc/resolv.conf or try a public resolver (8.8.8.8, 1.1.1.1)",
		}
	case strings.Contains(msg, "connection refused"):
		return []string{
			"The endpoint actively refused the connection",
			"A proxy or firewall is likely intercepting HTTPS traffic",
		}
	case strings.Contains(msg, "network unreachable"):
		return []string{
			"No route to the repository network",
			"Check the host's network interface and default route",
		}
	case strings.Contains(msg, "certificate"):
		return []string{
			"TLS verification failed for the repository",
			"Check the system clock and CA certificate store; corporate TLS interception also triggers this",
		}
	case strings.Contains(msg, "proxy"):
		return []string{
			"The configured proxy rejected the request",
			"Verify HTTP_PROXY/HTTPS_PROXY values and proxy credentials",
		}
	default:
		return []string{
			"Unclassified network failure; full error: " + err.Error(),
			"Verify general connectivity, then retry",
		}
	}
}
