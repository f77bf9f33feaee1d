package action

// The action set is closed and known at build time; registration happens
// once at init so rehydration stays a plain table lookup.
func init() {
	Register(TypeChat, NewChat)
	Register(TypeReady, NewReady)
	Register(TypeColonize, NewColonize)
	Register(TypeJump, NewJump)
	Register(TypeProduce, NewProduce)
	Register(TypePass, NewPass)
	Register(TypeCombatOrder, NewCombatOrder)
	Register(TypeConcede, NewConcede)
}
