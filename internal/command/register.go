package command

// RegisterAll wires every built-in handler into reg.
func RegisterAll(reg *Registry) {
	RegisterGeneric(reg)
	RegisterString(reg)
	RegisterList(reg)
	RegisterStream(reg)
	RegisterZSet(reg)
	RegisterTxn(reg)
	RegisterPubSub(reg)
	RegisterAdmin(reg)
}
