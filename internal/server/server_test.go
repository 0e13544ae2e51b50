package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/Sown0205/Anubis/internal/analysis"
	"github.com/Sown0205/Anubis/internal/auth"
	"github.com/Sown0205/Anubis/internal/core/model"
	"github.com/Sown0205/Anubis/internal/history"
	"github.com/Sown0205/Anubis/internal/scanner"
	"github.com/Sown0205/Anubis/internal/settings"
)

// steadySource emits the same two flows every cycle.
type steadySource struct{}

func (steadySource) Flows() []model.NetworkFlow {
	now := time.Now().UTC()
	return []model.NetworkFlow{
		{
			SrcIP: "192.168.1.10", DstIP: "8.8.8.8",
			SrcPort: 50001, DstPort: 443, Protocol: "TCP",
			PacketCount: 12, TotalBytes: 9600, FlowDuration: 1.5, Timestamp: now,
		},
		{
			SrcIP: "203.0.113.5", DstIP: "192.168.1.20",
			SrcPort: 40000, DstPort: 4444, Protocol: "TCP",
			PacketCount: 500, TotalBytes: 16000, FlowDuration: 0.5, Timestamp: now,
		},
	}
}

type testEnv struct {
	srv     *httptest.Server
	client  *http.Client
	service *analysis.Service
	store   history.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := history.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := analysis.NewService(t.TempDir(), 0)
	api := New(Deps{
		Scanner: scanner.New(scanner.Options{
			Interval: time.Hour, // only the immediate first cycle runs
			Source:   steadySource{},
		}),
		Analysis: svc,
		History:  store,
		Settings: settings.NewRegistry(),
		Auth:     auth.NewService(),
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &testEnv{
		srv:     srv,
		client:  &http.Client{Jar: jar},
		service: svc,
		store:   store,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, data
}

// login registers and authenticates a throwaway analyst account.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/auth/register", map[string]string{
		"email": "analyst@example.com", "name": "Analyst", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Register returned %d: %s", resp.StatusCode, body)
	}
	resp, body = e.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "analyst@example.com", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login returned %d: %s", resp.StatusCode, body)
	}
}

// waitForResults blocks until the first scan cycle has produced results.
func (e *testEnv) waitForResults(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, body := e.do(t, "GET", "/api/scan/status", nil)
		var status model.ScanStatus
		if err := json.Unmarshal(body, &status); err == nil && status.TotalResults > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Scan produced no results before the deadline")
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Error payload is not JSON: %s", body)
	}
	return payload.Detail
}

func TestScanLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/scan/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Start returned %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, "POST", "/api/scan/start", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Second start should fail, got %d", resp.StatusCode)
	}
	if d := detail(t, body); !strings.Contains(d, "already in progress") {
		t.Errorf("Unexpected error detail: %q", d)
	}

	env.waitForResults(t)
	resp, body = env.do(t, "GET", "/api/scan/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status returned %d", resp.StatusCode)
	}
	var status model.ScanStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.IsScanning {
		t.Error("Expected is_scanning true")
	}
	if status.TotalResults == 0 {
		t.Error("First cycle should have produced results")
	}

	resp, body = env.do(t, "POST", "/api/scan/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Stop returned %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, "POST", "/api/scan/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Idle stop should still answer 200, got %d", resp.StatusCode)
	}
	var stop struct {
		Session *model.ScanSession `json:"session"`
	}
	if err := json.Unmarshal(body, &stop); err != nil {
		t.Fatalf("Failed to decode stop response: %v", err)
	}
	if stop.Session != nil {
		t.Error("Idle stop should carry a null session")
	}
}

func TestScanAnalysisThresholds(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, "POST", "/api/scan/start", nil)
	env.waitForResults(t)
	env.do(t, "POST", "/api/scan/stop", nil)

	resp, body := env.do(t, "GET", "/api/scan/results/analysis", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Analysis returned %d", resp.StatusCode)
	}
	var an model.ScanAnalysis
	if err := json.Unmarshal(body, &an); err != nil {
		t.Fatalf("Failed to decode analysis: %v", err)
	}
	// One of the two synthetic flows is an attack, so the ratio is 50%.
	if an.OverallStatus != model.StatusCompromised {
		t.Errorf("Expected %s, got %s", model.StatusCompromised, an.OverallStatus)
	}
	if an.TotalFlows != an.BenignFlows+an.AttackFlows {
		t.Error("Flow counts should partition the total")
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/history", "/api/settings"} {
		resp, body := env.do(t, "GET", path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without session should be 401, got %d", path, resp.StatusCode)
		}
		if d := detail(t, body); d != "not authenticated" {
			t.Errorf("Unexpected detail for %s: %q", path, d)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.do(t, "GET", "/api/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Me returned %d: %s", resp.StatusCode, body)
	}
	var user auth.User
	if err := json.Unmarshal(body, &user); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if user.Email != "analyst@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}

	resp, _ = env.do(t, "GET", "/api/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("History with session should be 200, got %d", resp.StatusCode)
	}

	env.do(t, "POST", "/api/auth/logout", nil)
	resp, _ = env.do(t, "GET", "/api/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Me after logout should be 401, got %d", resp.StatusCode)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.do(t, "POST", "/api/auth/register", map[string]string{
		"email": "ANALYST@example.com", "name": "Other", "password": "something",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Duplicate register should fail, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d != "email already registered" {
		t.Errorf("Unexpected detail: %q", d)
	}
}

func uploadCapture(t *testing.T, env *testEnv, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest("POST", env.srv.URL+"/api/pcap/upload", &buf)
	if err != nil {
		t.Fatalf("Failed to build upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read upload response: %v", err)
	}
	return resp, data
}

// testPacket describes one synthetic TCP packet.
type testPacket struct {
	srcIP, dstIP     string
	srcPort, dstPort uint16
	payload          int
}

// pcapBytes synthesizes a classic pcap from the given packets, 100 ms
// apart.
func pcapBytes(t *testing.T, packets []testPacket) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("Failed to write pcap header: %v", err)
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, p := range packets {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
			SrcIP: net.ParseIP(p.srcIP), DstIP: net.ParseIP(p.dstIP),
		}
		tcp := &layers.TCP{SrcPort: layers.TCPPort(p.srcPort), DstPort: layers.TCPPort(p.dstPort)}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			t.Fatalf("Failed to set checksum layer: %v", err)
		}

		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		if err := gopacket.SerializeLayers(sb, opts, eth, ip, tcp, gopacket.Payload(make([]byte, p.payload))); err != nil {
			t.Fatalf("Failed to serialize packet: %v", err)
		}
		data := sb.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatalf("Failed to write packet: %v", err)
		}
		ts = ts.Add(100 * time.Millisecond)
	}
	return buf.Bytes()
}

// benignPackets is a short HTTPS exchange that classifies as benign.
func benignPackets() []testPacket {
	return []testPacket{
		{"192.168.1.10", "8.8.8.8", 50001, 443, 200},
		{"192.168.1.10", "8.8.8.8", 50001, 443, 400},
	}
}

func TestUploadAndResults(t *testing.T) {
	env := newTestEnv(t)

	resp, body := uploadCapture(t, env, "office.pcap", pcapBytes(t, benignPackets()))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", resp.StatusCode, body)
	}
	var up struct {
		AnalysisID string `json:"analysis_id"`
		Filename   string `json:"filename"`
	}
	if err := json.Unmarshal(body, &up); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	if up.AnalysisID == "" {
		t.Fatal("Upload response should carry an analysis_id")
	}
	env.service.Wait()

	resp, body = env.do(t, "GET", "/api/pcap/analysis/"+up.AnalysisID+"/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status returned %d: %s", resp.StatusCode, body)
	}
	var st model.AnalysisStatus
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if st.Status != model.AnalysisCompleted || st.Progress != 100 {
		t.Fatalf("Expected completed/100, got %s/%d (%s)", st.Status, st.Progress, st.Message)
	}

	resp, body = env.do(t, "GET", "/api/pcap/analysis/"+up.AnalysisID+"/results", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Results returned %d: %s", resp.StatusCode, body)
	}
	var res model.AnalysisResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("Failed to decode results: %v", err)
	}
	if res.Summary.TotalFlows != 1 {
		t.Errorf("Expected 1 flow, got %d", res.Summary.TotalFlows)
	}

	resp, _ = env.do(t, "DELETE", "/api/pcap/analysis/"+up.AnalysisID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Delete returned %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/pcap/analysis/"+up.AnalysisID+"/status", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Deleted analysis should be 404, got %d", resp.StatusCode)
	}
}

func TestUploadRejectsInvalidFile(t *testing.T) {
	env := newTestEnv(t)

	resp, body := uploadCapture(t, env, "notes.txt", []byte("hello"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for .txt upload, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d == "" {
		t.Error("Rejection should carry a detail message")
	}
}

func TestAnalysisResultsUnknown(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/pcap/analysis/nope/results", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d != "analysis not found" {
		t.Errorf("Unexpected detail: %q", d)
	}
}

func TestAnalysisSummaryAndThreats(t *testing.T) {
	env := newTestEnv(t)

	// One benign HTTPS flow plus one flow of small packets to a known
	// botnet port, so the threat sections have something to report.
	packets := benignPackets()
	for i := 0; i < 5; i++ {
		packets = append(packets, testPacket{"203.0.113.5", "192.168.1.20", 40000, 4444, 0})
	}
	resp, body := uploadCapture(t, env, "incident.pcap", pcapBytes(t, packets))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", resp.StatusCode, body)
	}
	var up struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.Unmarshal(body, &up); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	env.service.Wait()

	resp, body = env.do(t, "GET", "/api/pcap/analysis/"+up.AnalysisID+"/summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Summary returned %d: %s", resp.StatusCode, body)
	}
	var sum struct {
		AnalysisID string `json:"analysis_id"`
		Filename   string `json:"filename"`
		Summary    struct {
			TotalFlows int `json:"total_flows"`
		} `json:"summary"`
		Threats struct {
			MaliciousIPsCount int      `json:"malicious_ips_count"`
			MaliciousIPs      []string `json:"malicious_ips"`
		} `json:"threats"`
	}
	if err := json.Unmarshal(body, &sum); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if sum.AnalysisID != up.AnalysisID {
		t.Errorf("Expected analysis_id %s, got %s", up.AnalysisID, sum.AnalysisID)
	}
	if sum.Summary.TotalFlows != 2 {
		t.Errorf("Expected 2 flows in summary, got %d", sum.Summary.TotalFlows)
	}
	if sum.Threats.MaliciousIPsCount != len(sum.Threats.MaliciousIPs) || sum.Threats.MaliciousIPsCount == 0 {
		t.Errorf("Expected a consistent non-empty malicious IP set, got count=%d len=%d",
			sum.Threats.MaliciousIPsCount, len(sum.Threats.MaliciousIPs))
	}

	resp, body = env.do(t, "GET", "/api/pcap/analysis/"+up.AnalysisID+"/threats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Threats returned %d: %s", resp.StatusCode, body)
	}
	var th struct {
		MaliciousFlows []model.ScanResult `json:"malicious_flows"`
	}
	if err := json.Unmarshal(body, &th); err != nil {
		t.Fatalf("Failed to decode threats: %v", err)
	}
	if len(th.MaliciousFlows) != 1 {
		t.Fatalf("Expected 1 malicious flow, got %d", len(th.MaliciousFlows))
	}
	if th.MaliciousFlows[0].AIPrediction.Classification != model.ClassAttack {
		t.Errorf("Malicious flow should be ATTACK, got %s", th.MaliciousFlows[0].AIPrediction.Classification)
	}

	resp, body = env.do(t, "GET", "/api/pcap/analysis/nope/summary", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Unknown summary should be 404, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d != "analysis not found" {
		t.Errorf("Unexpected detail: %q", d)
	}
}

func TestHistoryListAndDetail(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	// Finish one session so something is on record.
	env.do(t, "POST", "/api/scan/start", nil)
	env.waitForResults(t)
	env.do(t, "POST", "/api/scan/stop", nil)

	resp, body := env.do(t, "GET", "/api/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("History returned %d: %s", resp.StatusCode, body)
	}
	var list struct {
		Scans []model.HistoryItem `json:"scans"`
		Total int                 `json:"total"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if list.Total != 1 || len(list.Scans) != 1 {
		t.Fatalf("Expected one recorded scan, got total=%d len=%d", list.Total, len(list.Scans))
	}

	id := list.Scans[0].ID
	resp, body = env.do(t, "GET", "/api/history/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Detail returned %d: %s", resp.StatusCode, body)
	}
	var det model.HistoryDetail
	if err := json.Unmarshal(body, &det); err != nil {
		t.Fatalf("Failed to decode detail: %v", err)
	}
	if det.ScanID != id {
		t.Errorf("Expected scan_id %s, got %s", id, det.ScanID)
	}
	if det.TotalResults != len(det.Results) {
		t.Error("total_results should match the result list")
	}

	resp, body = env.do(t, "GET", "/api/history/unknown-id", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Unknown id should be 404, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d != "scan not found" {
		t.Errorf("Unexpected detail: %q", d)
	}

	resp, _ = env.do(t, "DELETE", "/api/history/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Delete returned %d", resp.StatusCode)
	}
	_, body = env.do(t, "GET", "/api/history", nil)
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("Expected empty history after delete, got %d", list.Total)
	}
}

func TestHistoryListIncludesRunningSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.do(t, "POST", "/api/scan/start", nil)
	defer env.do(t, "POST", "/api/scan/stop", nil)

	_, body := env.do(t, "GET", "/api/history", nil)
	var list struct {
		Scans []model.HistoryItem `json:"scans"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(list.Scans) == 0 {
		t.Fatal("Running session should appear in the history list")
	}
	if list.Scans[0].Status != "Running" {
		t.Errorf("Expected Running status, got %s", list.Scans[0].Status)
	}
}

func TestHistoryExport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.do(t, "POST", "/api/scan/start", nil)
	env.waitForResults(t)
	env.do(t, "POST", "/api/scan/stop", nil)

	_, body := env.do(t, "GET", "/api/history", nil)
	var list struct {
		Scans []model.HistoryItem `json:"scans"`
	}
	if err := json.Unmarshal(body, &list); err != nil || len(list.Scans) == 0 {
		t.Fatalf("Failed to load history: %v (%s)", err, body)
	}

	resp, body := env.do(t, "POST", "/api/history/export", map[string]string{
		"scan_id": list.Scans[0].ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Export returned %d: %s", resp.StatusCode, body)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.Contains(cd, "anubis_scan_export_") || !strings.Contains(cd, ".json") {
		t.Errorf("Unexpected Content-Disposition: %q", cd)
	}
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("Export payload is not JSON: %v", err)
	}
	if envelope["scan_session"] == nil {
		t.Error("Single-scan export should embed the session")
	}

	resp, body = env.do(t, "POST", "/api/history/export", map[string]string{
		"scan_id": "unknown-id",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Export of unknown scan should be 404, got %d: %s", resp.StatusCode, body)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.do(t, "GET", "/api/settings", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Settings returned %d", resp.StatusCode)
	}
	var payload struct {
		Settings map[string]any `json:"settings"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if payload.Settings["scan_interval_seconds"] != float64(5) {
		t.Errorf("Expected default scan interval 5, got %v", payload.Settings["scan_interval_seconds"])
	}

	resp, _ = env.do(t, "PUT", "/api/settings", map[string]any{
		"scan_interval_seconds": 10,
		"auto_threat_response":  true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Update returned %d", resp.StatusCode)
	}

	resp, body = env.do(t, "PUT", "/api/settings", map[string]any{
		"scan_interval_seconds": 999,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Out-of-range update should fail, got %d", resp.StatusCode)
	}
	if d := detail(t, body); d == "" {
		t.Error("Rejection should carry a detail message")
	}

	_, body = env.do(t, "GET", "/api/settings", nil)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if payload.Settings["scan_interval_seconds"] != float64(10) {
		t.Errorf("Accepted update should persist, got %v", payload.Settings["scan_interval_seconds"])
	}
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/settings/system/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("System status returned %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Failed to decode system status: %v", err)
	}
	if payload["ai_model_status"] != "Active" {
		t.Errorf("Expected active model status, got %v", payload["ai_model_status"])
	}
	if payload["database_status"] != "Connected" {
		t.Errorf("Expected connected database, got %v", payload["database_status"])
	}
	if payload["last_updated"] == nil {
		t.Error("System status should carry last_updated")
	}
}
