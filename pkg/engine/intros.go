package engine

import "github.com/averith/murmur/pkg/state"

// introFor returns the opening line an agent speaks when a session starts.
func introFor(variant state.Variant) string {
	switch variant {
	case state.VariantCommerce:
		return "Hi, welcome to the store! You can ask me to find products, place an order, or check your last order. What are you looking for today?"
	case state.VariantFraudCheck:
		return "Hello, this is the security team at your bank calling about a flagged transaction. Before we continue, please read out the verification code from your statement."
	case state.VariantWellness:
		return "Hey, good to hear from you! Let's do your daily check-in. How's your mood today?"
	case state.VariantImprov:
		return "Welcome to Improv Battle, the show where the scenarios are made up and the points don't matter! What's your name, challenger?"
	case state.VariantStory:
		return "System Online. Welcome to Neon City, 2099. You wake up in a rainy alleyway behind a noodle shop. Your head hurts, and you are clutching a mysterious data chip. A security drone is scanning the area nearby. What do you do?"
	default:
		return "Hello! How can I help you today?"
	}
}
