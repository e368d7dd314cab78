package config

const (
	defaultInputCSV  = "rfcs.csv"
	defaultOutputDir = "~/satcerts/runs"

	defaultPortalURL         = "https://portalsat.plataforma.sat.gob.mx/RecuperacionDeCertificados/faces/recuperaRFC.xhtml"
	defaultNavigationTimeout = 30
	defaultElementTimeout    = 10
	defaultResponseTimeout   = 10
	defaultSuccessSelector   = "form#resultados"

	defaultWindowWidth  = 1366
	defaultWindowHeight = 900

	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "gpt-4o"
	defaultAnthropicBaseURL  = "https://api.anthropic.com"
	defaultAnthropicModel    = "claude-3-5-sonnet-20241022"
	defaultSolverTimeout     = 60
	defaultMaxSolutionLength = 15

	defaultMaxAttempts     = 5
	defaultIdentifierDelay = 2

	defaultNotifyTimeout = 10

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Selector lists are ordered from the portal's current markup to broader
// fallbacks that survive id churn.
var (
	defaultRFCInputSelectors = []string{
		"input#ctl00_MainContent_TxtRFC",
		"input[name*='TxtRFC']",
		"input[type='text']",
	}
	defaultCaptchaImageSelectors = []string{
		"img#ctl00_MainContent_ImgCaptcha",
		"img[src*='captcha']",
		"img[src*='Captcha']",
	}
	defaultCaptchaInputSelectors = []string{
		"input#ctl00_MainContent_TxtCaptchaInput",
		"input[name*='Captcha']",
	}
	defaultSubmitButtonSelectors = []string{
		"input#ctl00_MainContent_BtnBusqueda",
		"input[type='submit'][value*='Enviar']",
		"button[type='submit']",
	}
	defaultBackControlSelectors = []string{
		"input[value='Regresar']",
		"a[id*='regresar']",
	}
	defaultWrongCaptchaMarkers = []string{
		"texto capturado no corresponde",
		"captcha incorrecto",
		"texto no coincide",
	}
	defaultUnknownIdentifierMarkers = []string{
		"rfc no existe",
		"no existe en los registros",
		"rfc no registrado",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputCSV:  defaultInputCSV,
			OutputDir: defaultOutputDir,
		},
		Portal: Portal{
			URL:                   defaultPortalURL,
			NavigationTimeout:     defaultNavigationTimeout,
			ElementTimeout:        defaultElementTimeout,
			ResponseTimeout:       defaultResponseTimeout,
			RFCInputSelectors:     cloneStrings(defaultRFCInputSelectors),
			CaptchaImageSelectors: cloneStrings(defaultCaptchaImageSelectors),
			CaptchaInputSelectors: cloneStrings(defaultCaptchaInputSelectors),
			SubmitButtonSelectors: cloneStrings(defaultSubmitButtonSelectors),
			BackControlSelectors:  cloneStrings(defaultBackControlSelectors),
			Markers: Markers{
				SuccessSelector:   defaultSuccessSelector,
				WrongCaptcha:      cloneStrings(defaultWrongCaptchaMarkers),
				UnknownIdentifier: cloneStrings(defaultUnknownIdentifierMarkers),
			},
		},
		Browser: Browser{
			Headless:     true,
			WindowWidth:  defaultWindowWidth,
			WindowHeight: defaultWindowHeight,
		},
		Solver: Solver{
			OpenAIBaseURL:     defaultOpenAIBaseURL,
			OpenAIModel:       defaultOpenAIModel,
			AnthropicBaseURL:  defaultAnthropicBaseURL,
			AnthropicModel:    defaultAnthropicModel,
			TimeoutSeconds:    defaultSolverTimeout,
			MaxSolutionLength: defaultMaxSolutionLength,
		},
		Lookup: Lookup{
			MaxAttempts:            defaultMaxAttempts,
			IdentifierDelaySeconds: defaultIdentifierDelay,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func cloneStrings(values []string) []string {
	cp := make([]string, len(values))
	copy(cp, values)
	return cp
}
