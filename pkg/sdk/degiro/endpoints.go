package degiro

const (
	DefaultBaseURL      = "https://trader.degiro.nl"
	DefaultQuotecastURL = "https://degiro.quotecast.vwdservices.com/CORS"

	quotecastOrigin  = "https://trader.degiro.nl"
	quotecastVersion = "1.0.20170315"

	sessionCookie = "JSESSIONID"

	// base URL relative
	pathLogin     = "/login/secure/login"
	pathLoginTOTP = "/login/secure/login/totp"
	pathConfig    = "/login/secure/config"
	pathLogout    = "/trading/secure/logout"

	// paUrl relative
	pathClient = "client"
	pathTasks  = "tasks"

	// tradingUrl relative
	pathUpdate     = "v5/update/"
	pathCheckOrder = "v5/checkOrder"
	pathOrder      = "v5/order/"

	// reportingUrl relative
	pathOrderHistory = "v4/order-history"
	pathTransactions = "v4/transactions"

	// productSearchUrl relative
	pathProductLookup = "v5/products/lookup"
	pathProductInfo   = "v5/products/info"

	// quotecast relative
	pathRequestSession = "request_session"
)
