package redis

import (
	"github.com/joomcode/errorx"
)

var (
	// Errors is a root namespace of all respipe errors.
	Errors = errorx.NewNamespace("respipe").ApplyModifiers(errorx.TypeModifierOmitStackTrace)

	// ErrTraitConnectivity marks errors of network communication.
	ErrTraitConnectivity = errorx.RegisterTrait("network")
	// ErrTraitBroken marks errors after which connection is not usable anymore and should be discarded.
	ErrTraitBroken = errorx.RegisterTrait("connection_broken")
	// ErrTraitClusterMove marks redis cluster redirections (MOVED and ASK).
	ErrTraitClusterMove = errorx.RegisterTrait("cluster_move")
	// ErrTraitUsage marks wrong usage of api. It is fatal for the call, but not for connection.
	ErrTraitUsage = errorx.RegisterTrait("usage")

	// ErrOpts - options are wrong
	ErrOpts = Errors.NewSubNamespace("opts")
	// ErrContextIsNil - context is not passed to constructor
	ErrContextIsNil = ErrOpts.NewType("context_is_nil")
	// ErrNoAddressProvided - no address is given to constructor
	ErrNoAddressProvided = ErrOpts.NewType("no_address")
	// ErrNoDialProvided - pool is created without dial function
	ErrNoDialProvided = ErrOpts.NewType("no_dial")

	// ErrConnection - connection level errors.
	ErrConnection = Errors.NewSubNamespace("connection", ErrTraitConnectivity, ErrTraitBroken)
	// ErrDial - could not connect.
	ErrDial = ErrConnection.NewType("could_not_connect")
	// ErrAuth - password didn't match
	ErrAuth = ErrConnection.NewType("could_not_auth")
	// ErrConnSetup - other connection initialization error (including io errors)
	ErrConnSetup = ErrConnection.NewType("initialization_error")
	// ErrIO - io error: read/write error, or timeout, or connection closed while reading/writting.
	// It is not known if request were processed or not.
	ErrIO = ErrConnection.NewType("io error")
	// ErrConnClosed - connection were explicitly closed.
	ErrConnClosed = ErrConnection.NewType("closed")

	// ErrRequest - request malformed. Can not serialize request, no reason to retry.
	ErrRequest = Errors.NewSubNamespace("request")
	// ErrArgumentType - argument is not serializable
	ErrArgumentType = ErrRequest.NewType("argument_type")
	// ErrForbiddenCommand - command switches connection to other mode and could not be pipelined.
	ErrForbiddenCommand = ErrRequest.NewType("forbidden_command")

	// ErrResponse - response malformed. Redis returns unexpected response.
	ErrResponse = Errors.NewSubNamespace("response")
	// ErrResponseFormat - response is not valid Redis response
	ErrResponseFormat = ErrResponse.NewType("format", ErrTraitBroken)
	// ErrResponseUnexpected - response is valid redis response, but its structure/type unexpected
	ErrResponseUnexpected = ErrResponse.NewType("unexpected")
	// ErrHeaderlineTooLarge - header line too large
	ErrHeaderlineTooLarge = ErrResponse.NewType("headerline_too_large", ErrTraitBroken)
	// ErrHeaderlineEmpty - header line is empty
	ErrHeaderlineEmpty = ErrResponse.NewType("headerline_empty", ErrTraitBroken)
	// ErrIntegerParsing - integer malformed
	ErrIntegerParsing = ErrResponse.NewType("integer_parsing", ErrTraitBroken)
	// ErrNoFinalRN - no final "\r\n"
	ErrNoFinalRN = ErrResponse.NewType("no_final_rn", ErrTraitBroken)
	// ErrUnknownHeaderType - unknown header type
	ErrUnknownHeaderType = ErrResponse.NewType("unknown_headerline_type", ErrTraitBroken)
	// ErrExecDesync - EXEC returned array of other length than number of queued commands.
	ErrExecDesync = ErrResponse.NewType("exec_desync", ErrTraitBroken)
	// ErrPubSubMessage - unknown or malformed message in subscription mode.
	ErrPubSubMessage = ErrResponse.NewType("pubsub_message", ErrTraitBroken)

	// ErrResult - just regular redis response.
	ErrResult = Errors.NewType("result")
	// ErrMoved - MOVED response
	ErrMoved = ErrResult.NewSubtype("moved", ErrTraitClusterMove)
	// ErrAsk - ASK response
	ErrAsk = ErrResult.NewSubtype("ask", ErrTraitClusterMove)
	// ErrClusterDown - CLUSTERDOWN response. Caller should back off.
	ErrClusterDown = ErrResult.NewSubtype("clusterdown")
	// ErrLoading - LOADING response
	ErrLoading = ErrResult.NewSubtype("loading")
	// ErrExecAborted - EXEC returns nil (WATCH failed)
	ErrExecAborted = ErrResult.NewSubtype("exec_aborted")
	// ErrPoolTimeout - no connection became available in pool before context were done.
	ErrPoolTimeout = Errors.NewType("pool_timeout")
	// ErrNil - reply is missing (nil bulk or nil array) while value were expected.
	ErrNil = Errors.NewType("nil")

	// ErrUsage - api is used in wrong way.
	ErrUsage = Errors.NewSubNamespace("usage", ErrTraitUsage)
	// ErrNestedMulti - MULTI called inside of MULTI.
	ErrNestedMulti = ErrUsage.NewType("nested_multi")
	// ErrExecWithoutMulti - EXEC called without MULTI.
	ErrExecWithoutMulti = ErrUsage.NewType("exec_without_multi")
	// ErrDiscardWithoutMulti - DISCARD called without MULTI.
	ErrDiscardWithoutMulti = ErrUsage.NewType("discard_without_multi")
	// ErrNotYetAvailable - result accessed before pipeline were synced.
	ErrNotYetAvailable = ErrUsage.NewType("not_yet_available")
	// ErrNotSubscribed - subscriber is not attached to connection.
	ErrNotSubscribed = ErrUsage.NewType("not_subscribed")
	// ErrAlreadyListening - subscriber is already attached to connection.
	ErrAlreadyListening = ErrUsage.NewType("already_listening")
	// ErrNoChannels - subscribe is called without channels.
	ErrNoChannels = ErrUsage.NewType("no_channels")
	// ErrPoolClosed - pool were closed.
	ErrPoolClosed = ErrUsage.NewType("pool_closed")
)

var (
	// EKLine - set by response parser for unrecognized header lines.
	EKLine = errorx.RegisterPrintableProperty("line")
	// EKMovedTo - set by response parser for MOVED and ASK responses.
	EKMovedTo = errorx.RegisterPrintableProperty("movedto")
	// EKSlot - slot number parsed from MOVED and ASK responses.
	EKSlot = errorx.RegisterPrintableProperty("slot")
	// EKHost - host part of MOVED and ASK address.
	EKHost = errorx.RegisterProperty("host")
	// EKPort - port part of MOVED and ASK address.
	EKPort = errorx.RegisterProperty("port")
	// EKVal - invalid value.
	EKVal = errorx.RegisterPrintableProperty("val")
	// EKArgPos - position of invalid argument.
	EKArgPos = errorx.RegisterPrintableProperty("argpos")
	// EKRequest - request that triggered error.
	EKRequest = errorx.RegisterPrintableProperty("request")
	// EKResponse - unexpected response
	EKResponse = errorx.RegisterPrintableProperty("response")
	// EKExpected - expected number of elements.
	EKExpected = errorx.RegisterPrintableProperty("expected")
	// EKConnection - connection that handled request.
	EKConnection = errorx.RegisterPrintableProperty("connection")
	// EKDb - database number requested with SELECT.
	EKDb = errorx.RegisterPrintableProperty("db")
)

// AsErrorx returns v as *errorx.Error if it is, or nil otherwise.
func AsErrorx(v interface{}) *errorx.Error {
	e, _ := v.(*errorx.Error)
	return e
}

// AsError casts interface to error (if it is error)
func AsError(v interface{}) error {
	e, _ := v.(error)
	return e
}

// IsBroken reports whether err means connection is not usable anymore.
func IsBroken(err error) bool {
	return errorx.HasTrait(err, ErrTraitBroken)
}

// IsUsage reports whether err is an api misuse.
func IsUsage(err error) bool {
	return errorx.HasTrait(err, ErrTraitUsage)
}
