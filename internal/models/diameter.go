package models

import "fmt"

// Vendor3GPP is the 3GPP Vendor-Id used in Experimental-Result AVPs.
const Vendor3GPP uint32 = 10415

// ResultCode is the classification of a Diameter Result-Code or
// Experimental-Result-Code AVP. The thousands digit selects the band
// (RFC 6733 section 7.1); exactly one flag is set for codes in 2000-5999,
// none for anything else.
type ResultCode struct {
	Code            uint32 `json:"code"`
	IsSuccess       bool   `json:"is_success"`        // 2xxx
	IsProtocolError bool   `json:"is_protocol_error"` // 3xxx
	IsTransient     bool   `json:"is_transient"`      // 4xxx
	IsPermanent     bool   `json:"is_permanent"`      // 5xxx
	Description     string `json:"description"`
}

// Standard result code names (RFC 6733).
var resultCodeNames = map[uint32]string{
	2001: "DIAMETER_SUCCESS",
	2002: "DIAMETER_LIMITED_SUCCESS",
	3001: "DIAMETER_COMMAND_UNSUPPORTED",
	3002: "DIAMETER_UNABLE_TO_DELIVER",
	3003: "DIAMETER_REALM_NOT_SERVED",
	3004: "DIAMETER_TOO_BUSY",
	3005: "DIAMETER_LOOP_DETECTED",
	3006: "DIAMETER_REDIRECT_INDICATION",
	3007: "DIAMETER_APPLICATION_UNSUPPORTED",
	3008: "DIAMETER_INVALID_HDR_BITS",
	3009: "DIAMETER_INVALID_AVP_BITS",
	3010: "DIAMETER_UNKNOWN_PEER",
	4001: "DIAMETER_AUTHENTICATION_REJECTED",
	4002: "DIAMETER_OUT_OF_SPACE",
	4003: "DIAMETER_ELECTION_LOST",
	5001: "DIAMETER_AVP_UNSUPPORTED",
	5002: "DIAMETER_UNKNOWN_SESSION_ID",
	5003: "DIAMETER_AUTHORIZATION_REJECTED",
	5004: "DIAMETER_INVALID_AVP_VALUE",
	5005: "DIAMETER_MISSING_AVP",
	5006: "DIAMETER_RESOURCES_EXCEEDED",
	5007: "DIAMETER_CONTRADICTING_AVPS",
	5008: "DIAMETER_AVP_NOT_ALLOWED",
	5009: "DIAMETER_AVP_OCCURS_TOO_MANY_TIMES",
	5010: "DIAMETER_NO_COMMON_APPLICATION",
	5011: "DIAMETER_UNSUPPORTED_VERSION",
	5012: "DIAMETER_UNABLE_TO_COMPLY",
	5013: "DIAMETER_INVALID_BIT_IN_HEADER",
	5014: "DIAMETER_INVALID_AVP_LENGTH",
	5015: "DIAMETER_INVALID_MESSAGE_LENGTH",
	5016: "DIAMETER_INVALID_AVP_BIT_COMBO",
	5017: "DIAMETER_NO_COMMON_SECURITY",
}

// 3GPP experimental result code names (Vendor-Id 10415).
var tgppResultCodeNames = map[uint32]string{
	2001: "DIAMETER_FIRST_REGISTRATION",
	2002: "DIAMETER_SUBSEQUENT_REGISTRATION",
	2003: "DIAMETER_UNREGISTERED_SERVICE",
	2004: "DIAMETER_SUCCESS_SERVER_NAME_NOT_STORED",
	4100: "DIAMETER_USER_DATA_NOT_AVAILABLE",
	4101: "DIAMETER_PRIOR_UPDATE_IN_PROGRESS",
	5001: "DIAMETER_ERROR_USER_UNKNOWN",
	5002: "DIAMETER_ERROR_IDENTITIES_DONT_MATCH",
	5003: "DIAMETER_ERROR_IDENTITY_NOT_REGISTERED",
	5004: "DIAMETER_ERROR_ROAMING_NOT_ALLOWED",
	5005: "DIAMETER_ERROR_IDENTITY_ALREADY_REGISTERED",
	5006: "DIAMETER_ERROR_AUTH_SCHEME_NOT_SUPPORTED",
	5007: "DIAMETER_ERROR_IN_ASSIGNMENT_TYPE",
	5008: "DIAMETER_ERROR_TOO_MUCH_DATA",
	5009: "DIAMETER_ERROR_NOT_SUPPORTED_USER_DATA",
	5011: "DIAMETER_ERROR_FEATURE_UNSUPPORTED",
	5012: "DIAMETER_ERROR_SERVING_NODE_FEATURE_UNSUPPORTED",
	5401: "DIAMETER_ERROR_USER_NO_NON_3GPP_SUBSCRIPTION",
	5402: "DIAMETER_ERROR_USER_NO_APN_SUBSCRIPTION",
	5403: "DIAMETER_ERROR_RAT_NOT_ALLOWED",
	5420: "DIAMETER_ERROR_UNKNOWN_EPS_SUBSCRIPTION",
	5421: "DIAMETER_ERROR_RAT_TYPE_NOT_ALLOWED",
	5450: "DIAMETER_ERROR_EQUIPMENT_UNKNOWN",
}

// ParseResultCode classifies a standard Diameter result code. Codes outside
// 2000-5999 come back with every flag false; unexpected wire values must not
// fail classification.
func ParseResultCode(code uint32) ResultCode {
	rc := ResultCode{
		Code:            code,
		IsSuccess:       code >= 2000 && code < 3000,
		IsProtocolError: code >= 3000 && code < 4000,
		IsTransient:     code >= 4000 && code < 5000,
		IsPermanent:     code >= 5000 && code < 6000,
	}

	if name, ok := resultCodeNames[code]; ok {
		rc.Description = name
	} else {
		rc.Description = fmt.Sprintf("UNKNOWN_RESULT_CODE_%d", code)
	}

	return rc
}

// ParseExperimentalResultCode classifies a vendor-specific result code.
// Banding follows the same thousands-digit convention regardless of vendor;
// only the description differs. 3GPP codes get their TS 29.229/29.272 names,
// any other vendor falls back to the standard description.
func ParseExperimentalResultCode(vendorID, code uint32) ResultCode {
	rc := ParseResultCode(code)

	if vendorID == Vendor3GPP {
		if name, ok := tgppResultCodeNames[code]; ok {
			rc.Description = "3GPP_" + name
		}
	}

	return rc
}

// CCRequestType is the CC-Request-Type AVP value of a Gx/Gy
// Credit-Control-Request (RFC 4006). The numeric encodings are wire values.
type CCRequestType uint32

const (
	CCRequestInitial     CCRequestType = 1 // CCR-I, session establishment
	CCRequestUpdate      CCRequestType = 2 // CCR-U, session modification
	CCRequestTermination CCRequestType = 3 // CCR-T, session termination
	CCRequestEvent       CCRequestType = 4 // one-shot event charging
)

// CCRequestTypeFromWire maps a raw CC-Request-Type value. The boolean is
// false for values outside 1-4.
func CCRequestTypeFromWire(v uint32) (CCRequestType, bool) {
	t := CCRequestType(v)
	return t, t >= CCRequestInitial && t <= CCRequestEvent
}

func (t CCRequestType) String() string {
	switch t {
	case CCRequestInitial:
		return "INITIAL_REQUEST"
	case CCRequestUpdate:
		return "UPDATE_REQUEST"
	case CCRequestTermination:
		return "TERMINATION_REQUEST"
	case CCRequestEvent:
		return "EVENT_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// DiameterInterface identifies the Diameter application a charging session
// belongs to.
type DiameterInterface string

const (
	InterfaceGx DiameterInterface = "Gx"
	InterfaceGy DiameterInterface = "Gy"
)

// RATType values from 3GPP TS 29.212.
type RATType uint32

const (
	RATWLAN          RATType = 0
	RATVirtual       RATType = 1
	RATUTRAN         RATType = 1000
	RATGERAN         RATType = 1001
	RATGAN           RATType = 1002
	RATHSPAEvolution RATType = 1003
	RATEUTRAN        RATType = 1004
	RATNR            RATType = 1005
	RATCDMA20001X    RATType = 2000
	RATHRPD          RATType = 2001
	RATUMB           RATType = 2002
	RATEHRPD         RATType = 2003
)

func (r RATType) String() string {
	switch r {
	case RATWLAN:
		return "WLAN"
	case RATVirtual:
		return "VIRTUAL"
	case RATUTRAN:
		return "UTRAN (3G)"
	case RATGERAN:
		return "GERAN (2G)"
	case RATGAN:
		return "GAN"
	case RATHSPAEvolution:
		return "HSPA_EVOLUTION"
	case RATEUTRAN:
		return "E-UTRAN (4G LTE)"
	case RATNR:
		return "NR (5G)"
	case RATCDMA20001X:
		return "CDMA2000_1X"
	case RATHRPD:
		return "HRPD"
	case RATUMB:
		return "UMB"
	case RATEHRPD:
		return "eHRPD"
	default:
		return "UNKNOWN"
	}
}

// SubscriptionIDType values from RFC 4006.
type SubscriptionIDType uint32

const (
	SubscriptionE164    SubscriptionIDType = 0 // MSISDN
	SubscriptionIMSI    SubscriptionIDType = 1
	SubscriptionSIPURI  SubscriptionIDType = 2
	SubscriptionNAI     SubscriptionIDType = 3
	SubscriptionPrivate SubscriptionIDType = 4
)

// AVP codes the Gx/Gy adapters pull subscriber identity and bearer
// information from.
const (
	AVPSubscriptionID     uint32 = 443
	AVPSubscriptionIDType uint32 = 450
	AVPSubscriptionIDData uint32 = 444
	AVPFramedIPAddress    uint32 = 8
	AVPFramedIPv6Prefix   uint32 = 97
	AVPCalledStationID    uint32 = 30 // carries the APN on Gx/Gy

	// 3GPP vendor-specific (Vendor-Id 10415)
	AVP3GPPIMSI       uint32 = 1
	AVP3GPPChargingID uint32 = 2
	AVP3GPPRATType    uint32 = 21
	AVP3GPPMSISDN     uint32 = 701
	AVPQoSInformation uint32 = 1016
	AVPQoSClassID     uint32 = 1028
	AVPBearerID       uint32 = 1020
	AVPChargingRule   uint32 = 1005
)
