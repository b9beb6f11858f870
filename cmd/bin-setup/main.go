// bin-setup is the field-technician tool: it registers a dustbin against
// the server, captures the one-time device credentials, and can fire a
// signed test report through the gateway to prove the module will be
// accepted once flashed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"smartbin-server/protocol"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

const DEFAULT_SERVER = "http://localhost:3536"

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	secretStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)
)

type step int

const (
	stepEnteringServer step = iota
	stepEnteringCode
	stepEnteringLocation
	stepRegistering
	stepShowingCredentials
	stepSendingTestReport
	stepComplete
)

type model struct {
	step         step
	serverURL    string
	dustbinCode  string
	locationName string
	apiKey       string
	deviceSecret string
	currentInput string
	message      string
	fill         float64
	quitting     bool
}

type registeredMsg struct {
	apiKey       string
	deviceSecret string
}

type testReportMsg struct {
	fill float64
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func typingStep(s step) bool {
	return s == stepEnteringServer || s == stepEnteringCode || s == stepEnteringLocation
}

func initialModel() model {
	return model{
		step:         stepEnteringServer,
		currentInput: DEFAULT_SERVER,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func registerDustbin(serverURL, code, location string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 10 * time.Second}

		payload := map[string]interface{}{
			"dustbin_code":  code,
			"location_name": location,
		}
		jsonData, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", serverURL+"/api/v1/dustbins", bytes.NewBuffer(jsonData))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return errMsg{fmt.Errorf("server not reachable: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			return errMsg{fmt.Errorf("registration failed (%d): %s", resp.StatusCode, string(body))}
		}

		var result struct {
			Credentials struct {
				APIKey       string `json:"api_key"`
				DeviceSecret string `json:"device_secret"`
			} `json:"credentials"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return errMsg{fmt.Errorf("unexpected response: %w", err)}
		}
		if result.Credentials.DeviceSecret == "" {
			return errMsg{fmt.Errorf("server returned no device secret")}
		}

		return registeredMsg{
			apiKey:       result.Credentials.APIKey,
			deviceSecret: result.Credentials.DeviceSecret,
		}
	}
}

// sendTestReport signs a throwaway reading exactly the way flashed firmware
// will and pushes it through the gateway.
func sendTestReport(serverURL, code, secret string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 10 * time.Second}

		report := protocol.TelemetryReport{
			DustbinCode:     code,
			Sensor1Value:    40,
			Sensor2Value:    60,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			Nonce:           uuid.New().String(),
			FirmwareVersion: "bin-setup-test",
		}
		report.Signature = protocol.Sign(report.Canonical(), []byte(secret))

		jsonData, _ := json.Marshal(report)
		req, _ := http.NewRequest("POST", serverURL+"/api/v1/device-update", bytes.NewBuffer(jsonData))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return errMsg{fmt.Errorf("failed to send: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return errMsg{fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))}
		}

		var result struct {
			FillPercentage float64 `json:"fill_percentage"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return errMsg{fmt.Errorf("unexpected response: %w", err)}
		}

		return testReportMsg{fill: result.FillPercentage}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "q":
			if typingStep(m.step) {
				m.currentInput += "q"
				break
			}
			m.quitting = true
			return m, tea.Quit

		case "backspace":
			if len(m.currentInput) > 0 {
				m.currentInput = m.currentInput[:len(m.currentInput)-1]
			}

		default:
			if typingStep(m.step) {
				m.currentInput += msg.String()
			}

		case "enter":
			switch m.step {
			case stepEnteringServer:
				if m.currentInput != "" {
					m.serverURL = strings.TrimRight(m.currentInput, "/")
					m.currentInput = ""
					m.step = stepEnteringCode
				}

			case stepEnteringCode:
				if m.currentInput != "" {
					m.dustbinCode = m.currentInput
					m.currentInput = ""
					m.step = stepEnteringLocation
				}

			case stepEnteringLocation:
				m.locationName = m.currentInput
				m.currentInput = ""
				m.step = stepRegistering
				m.message = "Registering dustbin..."
				return m, registerDustbin(m.serverURL, m.dustbinCode, m.locationName)

			case stepShowingCredentials:
				m.step = stepSendingTestReport
				m.message = "Sending signed test report..."
				return m, sendTestReport(m.serverURL, m.dustbinCode, m.deviceSecret)

			case stepComplete:
				m.quitting = true
				return m, tea.Quit
			}
		}

	case registeredMsg:
		m.apiKey = msg.apiKey
		m.deviceSecret = msg.deviceSecret
		m.step = stepShowingCredentials
		m.message = successStyle.Render("✓ Dustbin " + m.dustbinCode + " registered!")

	case testReportMsg:
		m.fill = msg.fill
		m.step = stepComplete
		m.message = successStyle.Render(fmt.Sprintf("✓ Test report accepted (fill %.0f%%)", msg.fill))

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
		if m.step == stepRegistering {
			m.step = stepEnteringCode
		} else if m.step == stepSendingTestReport {
			m.step = stepShowingCredentials
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("🗑  Smart Bin Setup Tool\n\n"))

	switch m.step {
	case stepEnteringServer:
		s.WriteString(promptStyle.Render("Server URL:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepEnteringCode:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Dustbin code (e.g. BIN-001):\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepEnteringLocation:
		s.WriteString(promptStyle.Render("Location name (optional):\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepRegistering:
		s.WriteString(m.message + "\n")

	case stepShowingCredentials:
		s.WriteString(m.message + "\n\n")
		s.WriteString("Flash these into the module now — they are shown only once:\n\n")
		s.WriteString("  device_secret: " + secretStyle.Render(m.deviceSecret) + "\n")
		s.WriteString("  api_key:       " + secretStyle.Render(m.apiKey) + "\n")
		s.WriteString("\nPress Enter to send a signed test report, Ctrl+C to quit\n")

	case stepSendingTestReport:
		s.WriteString(m.message + "\n")

	case stepComplete:
		s.WriteString(m.message + "\n")
		s.WriteString("\nThe bin is live. Press Enter to exit\n")
	}

	return s.String()
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
