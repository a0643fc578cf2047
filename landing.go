package main

// landingPage is the whole frontend: language picker, streaming chat pane
// and feedback buttons. Served as-is from GET /; the page greets the user by
// sending the GREET_USER trigger on load.
const landingPage = `<!DOCTYPE html>
<html lang="hi">
<head>
    <title>भारतीय चुनाव सलाहकार</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; font-family: system-ui, -apple-system, sans-serif; background: #FFF8F0; color: #2C1F3D; }
        header { text-align: center; padding: 1.5rem 1rem 0.5rem; }
        header h1 { margin: 0; font-size: 1.5rem; }
        header p { margin: 0.25rem 0 0; color: #6B4C8A; font-size: 0.9rem; }
        .lang-bar { text-align: center; margin: 0.75rem 0; }
        .lang-bar select { padding: 6px 12px; border: 2px solid #6B4C8A; border-radius: 8px; background: #FFFBF5; font-size: 0.9rem; }
        .chat { max-width: 700px; margin: 0 auto; padding: 0 1rem 7rem; }
        .q { padding: 0.9rem 1.1rem; background: #E8DCC4; border-left: 4px solid #6B4C8A; margin: 1rem 0 0.5rem; border-radius: 0 8px 8px 0; white-space: pre-wrap; }
        .a { padding: 0.9rem 1.1rem; background: #FFFBF5; border: 1px solid #E8DCC4; border-radius: 8px; margin-bottom: 0.25rem; white-space: pre-wrap; }
        .fb { text-align: right; margin-bottom: 0.75rem; }
        .fb button { border: none; background: none; cursor: pointer; font-size: 1rem; opacity: 0.5; }
        .fb button:hover, .fb button.sent { opacity: 1; }
        form { position: fixed; bottom: 0; left: 0; right: 0; background: #FFF8F0; padding: 1rem; border-top: 1px solid #E8DCC4; }
        .input-row { display: flex; gap: 0.5rem; max-width: 700px; margin: 0 auto; }
        input[type="text"] { flex: 1; padding: 0.8rem 1rem; font-size: 1rem; border: 3px solid #6B4C8A; border-radius: 12px; background: #FFFBF5; outline: none; }
        input[type="submit"] { padding: 0.8rem 1.5rem; font-weight: 600; background: #6B4C8A; color: white; border: none; border-radius: 10px; cursor: pointer; }
        input[type="submit"]:disabled { opacity: 0.5; }
        .reset { text-align: center; margin: 0.5rem 0 0; }
        .reset a { color: #6B4C8A; font-size: 0.85rem; }
        @media (prefers-color-scheme: dark) {
            body, form { background: #181a1b; color: #e8e6e3; }
            .q { background: #23262a; color: #c9d1d9; }
            .a { background: #222326; border-color: #333; color: #e8e6e3; }
            input[type="text"], .lang-bar select { background: #23262a; color: #e8e6e3; border-color: #444; }
        }
    </style>
</head>
<body>
    <header>
        <h1>🗳 भारतीय चुनाव सलाहकार</h1>
        <p>Indian Election Advisor — voter registration, EPIC, EVM/VVPAT, polling booths</p>
    </header>
    <div class="lang-bar">
        <select id="lang">
            <option value="hi" selected>हिन्दी</option>
            <option value="en">English</option>
            <option value="bn">বাংলা</option>
            <option value="ta">தமிழ்</option>
            <option value="mr">मराठी</option>
        </select>
    </div>
    <div class="chat" id="chat"></div>
    <form id="chat-form">
        <div class="input-row">
            <input type="text" id="message" placeholder="अपना प्रश्न यहाँ लिखें..." autocomplete="off" autofocus>
            <input type="submit" id="send" value="भेजें">
        </div>
        <p class="reset"><a href="#" id="new-chat">नई बातचीत / New Chat</a></p>
    </form>

    <script>
        const chatDiv = document.getElementById('chat');
        const form = document.getElementById('chat-form');
        const messageInput = document.getElementById('message');
        const sendButton = document.getElementById('send');

        function addBubble(cls, text) {
            const div = document.createElement('div');
            div.className = cls;
            div.textContent = text;
            chatDiv.appendChild(div);
            div.scrollIntoView({behavior: 'smooth', block: 'end'});
            return div;
        }

        function addFeedback(question, answerDiv) {
            const bar = document.createElement('div');
            bar.className = 'fb';
            for (const type of ['positive', 'negative']) {
                const btn = document.createElement('button');
                btn.textContent = type === 'positive' ? '👍' : '👎';
                btn.onclick = async () => {
                    btn.classList.add('sent');
                    await fetch('/feedback', {
                        method: 'POST',
                        headers: {'Content-Type': 'application/json'},
                        body: JSON.stringify({
                            user_message: question,
                            bot_response: answerDiv.textContent,
                            feedback_type: type,
                            language: document.getElementById('lang').value
                        })
                    });
                };
                bar.appendChild(btn);
            }
            chatDiv.appendChild(bar);
        }

        async function send(message, showQuestion) {
            if (showQuestion) addBubble('q', message);
            const answerDiv = addBubble('a', '');
            messageInput.disabled = true;
            sendButton.disabled = true;
            try {
                const resp = await fetch('/chat', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({message: message, lang: document.getElementById('lang').value})
                });
                if (!resp.ok) {
                    const err = await resp.json().catch(() => ({}));
                    answerDiv.textContent = err.error || 'कुछ गलत हो गया। कृपया फिर से प्रयास करें।';
                    return;
                }
                const reader = resp.body.getReader();
                const decoder = new TextDecoder();
                while (true) {
                    const {done, value} = await reader.read();
                    if (done) break;
                    answerDiv.textContent += decoder.decode(value, {stream: true});
                    answerDiv.scrollIntoView({behavior: 'smooth', block: 'end'});
                }
                if (showQuestion) addFeedback(message, answerDiv);
            } catch (e) {
                answerDiv.textContent = 'कुछ गलत हो गया। कृपया फिर से प्रयास करें।';
            } finally {
                messageInput.disabled = false;
                sendButton.disabled = false;
                messageInput.focus();
            }
        }

        form.addEventListener('submit', (e) => {
            e.preventDefault();
            const message = messageInput.value.trim();
            if (!message) return;
            messageInput.value = '';
            send(message, true);
        });

        document.getElementById('new-chat').addEventListener('click', async (e) => {
            e.preventDefault();
            await fetch('/reset', {method: 'POST'});
            chatDiv.innerHTML = '';
            send('GREET_USER', false);
        });

        // Greet on first load.
        send('GREET_USER', false);
    </script>
</body>
</html>`
