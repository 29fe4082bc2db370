package console

// Button is one inline keyboard button.
type Button struct {
	Text   string
	Action Action
}

// Reply is what the transport shows after an action. For button presses the
// transport edits the pressed message; for text input it sends a new one.
type Reply struct {
	Text string
	Rows [][]Button
	// Notice is a short toast for the button press, empty for none.
	Notice string
	// Alert shows Notice as a modal alert instead of a toast.
	Alert bool
}

func row(buttons ...Button) []Button { return buttons }

func button(text string, a Action) Button { return Button{Text: text, Action: a} }

func backToMain() []Button { return row(button("<< Назад", MainMenu())) }
